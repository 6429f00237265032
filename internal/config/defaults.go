package config

const (
	defaultWorkDir            = "~/.local/share/stickerpack/work"
	defaultOutputDir          = "~/.local/share/stickerpack/packs"
	defaultLogDir             = "~/.local/share/stickerpack/logs"
	defaultAPIBind            = "127.0.0.1:5000"
	defaultAPIBaseURL         = "https://api.telegram.org"
	defaultShareBaseURL       = "https://t.me/addstickers"
	defaultRequestTimeout     = 30
	defaultEmoji              = "😀"
	defaultProxyType          = "http"
	defaultStaticMaxKB        = 512
	defaultVideoMaxKB         = 256
	defaultMaxDimension       = 512
	defaultEmojiDimension     = 100
	defaultMaxDuration        = 3.0
	defaultMaxFPS             = 30
	defaultFallbackFPS        = 10
	defaultVP9Speed           = 4
	defaultWebPQualityStart   = 95
	defaultWebPQualityStep    = 10
	defaultWebPQualityFloor   = 10
	defaultMaxUploadMB        = 50
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	maxLadderLevels           = 7
	telegramMaxPackNameLength = 64
)

var defaultCRFLadder = []int{30, 35, 40, 45, 50, 55, 60}

var defaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "mp4", "webm", "tgs"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Telegram: Telegram{
			APIBaseURL:     defaultAPIBaseURL,
			ShareBaseURL:   defaultShareBaseURL,
			RequestTimeout: defaultRequestTimeout,
			DefaultEmoji:   defaultEmoji,
			Proxy: Proxy{
				Type: defaultProxyType,
			},
		},
		Stickers: Stickers{
			StaticMaxKB:      defaultStaticMaxKB,
			VideoMaxKB:       defaultVideoMaxKB,
			MaxDimension:     defaultMaxDimension,
			EmojiDimension:   defaultEmojiDimension,
			MaxDuration:      defaultMaxDuration,
			MaxFPS:           defaultMaxFPS,
			DefaultFPS:       defaultFallbackFPS,
			CRFLadder:        append([]int(nil), defaultCRFLadder...),
			VP9Speed:         defaultVP9Speed,
			WebPQualityStart: defaultWebPQualityStart,
			WebPQualityStep:  defaultWebPQualityStep,
			WebPQualityFloor: defaultWebPQualityFloor,
		},
		Server: Server{
			MaxUploadMB:       defaultMaxUploadMB,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
