package app

import (
	"strings"
	"time"

	"github.com/yungbote/avatar-interview-backend/internal/platform/envutil"
	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

const (
	ProviderOpenAI = "openai"
	ProviderGCP    = "gcp"
	ProviderYandex = "yandex"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	SessionTTL      time.Duration
	JanitorInterval time.Duration

	STTProvider string
	STTLanguage string
	TTSProvider string
	TTSLanguage string
	VoiceMale   string
	VoiceFemale string
	TTSSpeed    float64

	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
	SynthesizeTimeout time.Duration
	CompositeTimeout  time.Duration
	FetchTimeout      time.Duration
	ArchiveTimeout    time.Duration

	MediaWorkDir      string
	FFmpegPath        string
	FFprobePath       string
	TemplateBaseURL   string
	// TemplateLocalRoot is the only directory local template paths may come from.
	TemplateLocalRoot string
	MaxAudioBytes     int64

	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	OpenAITranscribeModel string
	OpenAISpeechModel     string
	OpenAINoTempModels    string

	YandexAPIKey   string
	YandexIAMToken string
	YandexFolderID string

	GCPCredentials string

	RedisAddr    string
	RedisChannel string

	ArchiveDriver string
	ArchiveDSN    string

	MetricsEnabled bool
	OtelEnabled    bool
	CORSOrigins    []string
	LegacyRoutes   bool
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8101"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		SessionTTL:      time.Duration(envutil.Int("SESSION_TTL_MINUTES", 120)) * time.Minute,
		JanitorInterval: envutil.Seconds("SESSION_JANITOR_SECONDS", time.Minute),

		STTProvider: strings.ToLower(envutil.String("STT_PROVIDER", ProviderOpenAI)),
		STTLanguage: envutil.String("STT_LANGUAGE", "ru-RU"),
		TTSProvider: strings.ToLower(envutil.String("TTS_PROVIDER", ProviderYandex)),

		TranscribeTimeout: envutil.Seconds("TRANSCRIBE_TIMEOUT_SECONDS", 60*time.Second),
		GenerateTimeout:   envutil.Seconds("GENERATE_TIMEOUT_SECONDS", 60*time.Second),
		SynthesizeTimeout: envutil.Seconds("SYNTHESIZE_TIMEOUT_SECONDS", 30*time.Second),
		CompositeTimeout:  envutil.Seconds("COMPOSITE_TIMEOUT_SECONDS", 120*time.Second),
		FetchTimeout:      envutil.Seconds("TEMPLATE_FETCH_TIMEOUT_SECONDS", 120*time.Second),
		ArchiveTimeout:    envutil.Seconds("ARCHIVE_TIMEOUT_SECONDS", 90*time.Second),

		MediaWorkDir:      envutil.String("MEDIA_WORK_DIR", ""),
		FFmpegPath:        envutil.String("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:       envutil.String("FFPROBE_PATH", "ffprobe"),
		TemplateBaseURL:   envutil.String("TEMPLATE_BASE_URL", ""),
		TemplateLocalRoot: envutil.String("TEMPLATE_LOCAL_ROOT", ""),
		MaxAudioBytes:     int64(envutil.Int("MAX_AUDIO_MB", 25)) << 20,

		OpenAIAPIKey:          envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         envutil.String("OPENAI_BASE_URL", ""),
		OpenAIModel:           envutil.String("OPENAI_MODEL", ""),
		OpenAITranscribeModel: envutil.String("OPENAI_TRANSCRIBE_MODEL", ""),
		OpenAISpeechModel:     envutil.String("OPENAI_SPEECH_MODEL", ""),
		OpenAINoTempModels:    envutil.String("OPENAI_NO_TEMPERATURE_MODELS", ""),

		YandexAPIKey:   envutil.String("YANDEX_API_KEY", ""),
		YandexIAMToken: envutil.String("YANDEX_IAM_TOKEN", ""),
		YandexFolderID: envutil.String("YANDEX_FOLDER_ID", ""),

		GCPCredentials: firstEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "GOOGLE_APPLICATION_CREDENTIALS"),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", ""),

		ArchiveDriver: strings.ToLower(envutil.String("ARCHIVE_DRIVER", "")),
		ArchiveDSN:    envutil.String("ARCHIVE_DSN", ""),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		OtelEnabled:    envutil.Bool("OTEL_ENABLED", false),
		CORSOrigins:    envutil.List("CORS_ORIGINS"),
		LegacyRoutes:   envutil.Bool("LEGACY_ROUTES", true),
	}
	cfg.TTSLanguage = envutil.String("TTS_LANGUAGE", cfg.STTLanguage)
	cfg.TTSSpeed = float64(envutil.Int("TTS_SPEED_PERCENT", 100)) / 100

	male, female := defaultVoices(cfg.TTSProvider)
	cfg.VoiceMale = envutil.String("TTS_VOICE_MALE", male)
	cfg.VoiceFemale = envutil.String("TTS_VOICE_FEMALE", female)

	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"stt_provider", cfg.STTProvider,
			"tts_provider", cfg.TTSProvider,
			"session_ttl", cfg.SessionTTL.String(),
			"archive_driver", cfg.ArchiveDriver,
			"redis_enabled", cfg.RedisAddr != "",
			"metrics_enabled", cfg.MetricsEnabled,
			"otel_enabled", cfg.OtelEnabled,
		)
	}
	return cfg
}

func defaultVoices(provider string) (male, female string) {
	if provider == ProviderOpenAI {
		return "onyx", "nova"
	}
	return "zahar", "oksana"
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := envutil.String(n, ""); v != "" {
			return v
		}
	}
	return ""
}
