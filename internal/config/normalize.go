package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	if err := c.normalizeProxy(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("STICKERPACK_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeTelegram() error {
	t := &c.Telegram
	if t.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			t.BotToken = value
		}
	}
	t.BotToken = strings.TrimSpace(t.BotToken)
	if t.UserID == 0 {
		if value, ok := lookupTrimmed("TELEGRAM_USER_ID"); ok {
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("TELEGRAM_USER_ID: invalid account id %q", value)
			}
			t.UserID = id
		}
	}
	if t.PackNamePrefix == "" {
		if value, ok := lookupTrimmed("PACK_NAME_PREFIX"); ok {
			t.PackNamePrefix = value
		}
	}
	if value, ok := lookupTrimmed("DEFAULT_EMOJI"); ok && (t.DefaultEmoji == "" || t.DefaultEmoji == defaultEmoji) {
		t.DefaultEmoji = value
	}
	if strings.TrimSpace(t.DefaultEmoji) == "" {
		t.DefaultEmoji = defaultEmoji
	}
	t.APIBaseURL = strings.TrimRight(strings.TrimSpace(t.APIBaseURL), "/")
	if t.APIBaseURL == "" {
		t.APIBaseURL = defaultAPIBaseURL
	}
	t.ShareBaseURL = strings.TrimRight(strings.TrimSpace(t.ShareBaseURL), "/")
	if t.ShareBaseURL == "" {
		t.ShareBaseURL = defaultShareBaseURL
	}
	if t.RequestTimeout <= 0 {
		t.RequestTimeout = defaultRequestTimeout
	}
	return nil
}

func (c *Config) normalizeProxy() error {
	p := &c.Telegram.Proxy
	if value, ok := lookupTrimmed("PROXY_ENABLED"); ok && !p.Enabled {
		p.Enabled = strings.EqualFold(value, "true")
	}
	if value, ok := lookupTrimmed("PROXY_TYPE"); ok && (p.Type == "" || p.Type == defaultProxyType) {
		p.Type = value
	}
	if value, ok := lookupTrimmed("PROXY_HOST"); ok && p.Host == "" {
		p.Host = value
	}
	if value, ok := lookupTrimmed("PROXY_PORT"); ok && p.Port == 0 {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PROXY_PORT: invalid port %q", value)
		}
		p.Port = port
	}
	if value, ok := lookupTrimmed("PROXY_AUTH_ENABLED"); ok && !p.AuthEnabled {
		p.AuthEnabled = strings.EqualFold(value, "true")
	}
	if value, ok := lookupTrimmed("PROXY_USERNAME"); ok && p.Username == "" {
		p.Username = value
	}
	if value, ok := lookupTrimmed("PROXY_PASSWORD"); ok && p.Password == "" {
		p.Password = value
	}
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	if p.Type == "" {
		p.Type = defaultProxyType
	}
	p.Host = strings.TrimSpace(p.Host)
	return nil
}

func (c *Config) normalizeServer() {
	exts := make([]string, 0, len(c.Server.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Server.AllowedExtensions))
	for _, ext := range c.Server.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAllowedExtensions...)
	}
	c.Server.AllowedExtensions = exts
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
