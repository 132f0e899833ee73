package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "coursevault/1.0 (+https://github.com/igotools/coursevault)"

type Config struct {
	// BaseURL is the root of the content-management portal, e.g. "https://portal.igotkarmayogi.gov.in".
	BaseURL string `mapstructure:"base_url"`
	// PipelineBaseURL is the transcription-pipeline endpoint queried per resource_id.
	PipelineBaseURL string `mapstructure:"pipeline_base_url"`
	// StorageURLPrefix and ContentStorePrefix drive artifact URL rewriting:
	// download URLs starting with the former are rewritten to the latter.
	StorageURLPrefix   string `mapstructure:"storage_url_prefix"`
	ContentStorePrefix string `mapstructure:"content_store_prefix"`
	LoginAPIURL        string `mapstructure:"login_api_url"`

	ClientTimeout   string `mapstructure:"client_timeout"`   // Go duration string, metadata/transcript calls
	DownloadTimeout string `mapstructure:"download_timeout"` // Go duration string, binary asset downloads
	UserAgent       string `mapstructure:"user_agent"`

	// DownloadDir is where session workspaces and archives are created.
	DownloadDir string `mapstructure:"download_dir"`

	Server struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`

	LogLevel  string `mapstructure:"log_level"`
	SentryDSN string `mapstructure:"sentry_dsn"`

	Cache struct {
		Provider string `mapstructure:"provider"` // "memory" or "redis"
		Size     int    `mapstructure:"size"`
		TTL      string `mapstructure:"ttl"` // Go duration string
		Redis    struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	// Pacing delays are deliberate self-throttling against the upstream
	// portal and caption provider, not tunables for speed.
	Pacing struct {
		ResourceDelay   string `mapstructure:"resource_delay"`   // between child resources
		CourseDelay     string `mapstructure:"course_delay"`     // between courses
		CaptionInterval string `mapstructure:"caption_interval"` // minimum gap between caption-provider requests
	} `mapstructure:"pacing"`

	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		SMTPHost  string `mapstructure:"smtp_host"`
		SMTPPort  int    `mapstructure:"smtp_port"`
		Sender    string `mapstructure:"sender"`
		Password  string `mapstructure:"password"`
		Recipient string `mapstructure:"recipient"`
	} `mapstructure:"email"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel // default
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	globalConfig = config
	logger.Info().Str("level", level.String()).Msg("Configuration loaded")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("base_url", "https://portal.igotkarmayogi.gov.in")
	viper.SetDefault("pipeline_base_url", "")
	viper.SetDefault("storage_url_prefix", "https://storage.googleapis.com/igotprod")
	viper.SetDefault("content_store_prefix", "https://igotkarmayogi.gov.in/content-store")
	viper.SetDefault("client_timeout", "30s")
	viper.SetDefault("download_timeout", "5m")
	viper.SetDefault("download_dir", ".")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.address", "localhost")
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("cache.provider", "memory")
	viper.SetDefault("cache.size", 256)
	viper.SetDefault("cache.ttl", "15m")
	viper.SetDefault("pacing.resource_delay", "500ms")
	viper.SetDefault("pacing.course_delay", "2s")
	viper.SetDefault("pacing.caption_interval", "5s")
	viper.SetDefault("email.smtp_port", 587)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}

// Duration parses the given duration string, falling back to def when the
// string is empty or invalid.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("duration", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}
