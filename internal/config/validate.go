package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateStickers(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTelegram() error {
	if c.Telegram.UserID < 0 {
		return errors.New("telegram.user_id must be positive")
	}
	if c.Telegram.RequestTimeout <= 0 {
		return errors.New("telegram.request_timeout must be positive")
	}
	if len(c.Telegram.PackNamePrefix) > telegramMaxPackNameLength {
		return fmt.Errorf("telegram.pack_name_prefix must be at most %d characters", telegramMaxPackNameLength)
	}
	p := c.Telegram.Proxy
	if !p.Enabled {
		return nil
	}
	switch p.Type {
	case "http", "https", "socks5", "socks5h":
	default:
		return fmt.Errorf("telegram.proxy.type: unsupported value %q", p.Type)
	}
	if p.Port < 0 || p.Port > 65535 {
		return fmt.Errorf("telegram.proxy.port: %d out of range", p.Port)
	}
	return nil
}

func (c *Config) validateStickers() error {
	s := c.Stickers
	if err := ensurePositive(map[string]int{
		"stickers.static_max_kb":   s.StaticMaxKB,
		"stickers.video_max_kb":    s.VideoMaxKB,
		"stickers.max_dimension":   s.MaxDimension,
		"stickers.emoji_dimension": s.EmojiDimension,
		"stickers.max_fps":         s.MaxFPS,
		"stickers.default_fps":     s.DefaultFPS,
	}); err != nil {
		return err
	}
	if s.MaxDuration <= 0 {
		return errors.New("stickers.max_duration must be positive")
	}
	if len(s.CRFLadder) == 0 {
		return errors.New("stickers.crf_ladder must list at least one level")
	}
	if len(s.CRFLadder) > maxLadderLevels {
		return fmt.Errorf("stickers.crf_ladder must have at most %d levels", maxLadderLevels)
	}
	for i, crf := range s.CRFLadder {
		if crf < 0 || crf > 63 {
			return fmt.Errorf("stickers.crf_ladder[%d]: %d outside 0-63", i, crf)
		}
		if i > 0 && crf <= s.CRFLadder[i-1] {
			return errors.New("stickers.crf_ladder must be strictly increasing")
		}
	}
	if s.VP9Speed < 0 || s.VP9Speed > 8 {
		return errors.New("stickers.vp9_speed must be between 0 and 8")
	}
	if s.WebPQualityStart <= 0 || s.WebPQualityStart > 100 {
		return errors.New("stickers.webp_quality_start must be between 1 and 100")
	}
	if s.WebPQualityStep <= 0 {
		return errors.New("stickers.webp_quality_step must be positive")
	}
	if s.WebPQualityFloor < 0 || s.WebPQualityFloor >= s.WebPQualityStart {
		return errors.New("stickers.webp_quality_floor must be below webp_quality_start")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
