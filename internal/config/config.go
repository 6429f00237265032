package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Proxy describes an optional outbound proxy for Bot API traffic.
type Proxy struct {
	Enabled     bool   `toml:"enabled"`
	Type        string `toml:"type"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	AuthEnabled bool   `toml:"auth_enabled"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

// Telegram contains Bot API credentials and pack defaults.
type Telegram struct {
	BotToken       string `toml:"bot_token"`
	UserID         int64  `toml:"user_id"`
	APIBaseURL     string `toml:"api_base_url"`
	ShareBaseURL   string `toml:"share_base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	PackNamePrefix string `toml:"pack_name_prefix"`
	DefaultEmoji   string `toml:"default_emoji"`
	Proxy          Proxy  `toml:"proxy"`
}

// Stickers contains the conversion budgets and encoder settings.
type Stickers struct {
	StaticMaxKB      int     `toml:"static_max_kb"`
	VideoMaxKB       int     `toml:"video_max_kb"`
	MaxDimension     int     `toml:"max_dimension"`
	EmojiDimension   int     `toml:"emoji_dimension"`
	MaxDuration      float64 `toml:"max_duration"`
	MaxFPS           int     `toml:"max_fps"`
	DefaultFPS       int     `toml:"default_fps"`
	CRFLadder        []int   `toml:"crf_ladder"`
	VP9Speed         int     `toml:"vp9_speed"`
	WebPQualityStart int     `toml:"webp_quality_start"`
	WebPQualityStep  int     `toml:"webp_quality_step"`
	WebPQualityFloor int     `toml:"webp_quality_floor"`
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	FFprobeBinary    string  `toml:"ffprobe_binary"`
}

// Server contains HTTP API upload limits.
type Server struct {
	MaxUploadMB       int      `toml:"max_upload_mb"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for stickerpack.
//
// Configuration sections by subsystem:
//   - Paths: working directories and API bind address
//   - Telegram: bot credentials, owning account, proxy
//   - Stickers: size/duration budgets and encoder ladder
//   - Server: upload limits for the HTTP API
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Telegram      Telegram      `toml:"telegram"`
	Stickers      Stickers      `toml:"stickers"`
	Server        Server        `toml:"server"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stickerpack/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is loaded first so its values act as environment fallbacks.
// The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	// Missing .env is the common case.
	_ = godotenv.Load()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("stickerpack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireTelegram reports whether the credentials needed for remote calls are present.
func (c *Config) RequireTelegram() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/stickerpack/config.toml"
		}
		return fmt.Errorf("telegram.bot_token is required. Set TELEGRAM_BOT_TOKEN or edit %s (create with 'stickerpack config init')", defaultPath)
	}
	if c.Telegram.UserID <= 0 {
		return errors.New("telegram.user_id is required. Set TELEGRAM_USER_ID to the account that will own the packs")
	}
	return nil
}

// RequestTimeout returns the per-call Bot API timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.Telegram.RequestTimeout <= 0 {
		return defaultRequestTimeout * time.Second
	}
	return time.Duration(c.Telegram.RequestTimeout) * time.Second
}

// ProxyURL builds the outbound proxy URL, or nil when no proxy is configured.
func (c *Config) ProxyURL() *url.URL {
	p := c.Telegram.Proxy
	if !p.Enabled || strings.TrimSpace(p.Host) == "" || p.Port <= 0 {
		return nil
	}
	u := &url.URL{
		Scheme: p.Type,
		Host:   p.Host + ":" + strconv.Itoa(p.Port),
	}
	if p.AuthEnabled && p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// FFmpegBinary returns the ffmpeg executable used for encoding.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Stickers.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Stickers.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// UploadDir is where the HTTP API stores uploaded source files.
func (c *Config) UploadDir() string {
	return filepath.Join(c.Paths.WorkDir, "uploads")
}
