package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"cv-optimizer/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	SessionStore  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	ReasoningProvider string
	ReasoningModel    string
	OpenAIAPIKey      string
	GeminiAPIKey      string
	TranscribeModel   string

	AnalysisTimeout   time.Duration
	GenerationTimeout time.Duration
	ParseTimeout      time.Duration
	TranscribeTimeout time.Duration

	BreakerEnabled      bool
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration

	RateLimitRPM   int
	RateLimitBurst int

	RabbitMQURL string

	LogLevel  string
	LogFormat string

	MaxUploadBytes int64
}

const (
	defaultAnalysisTimeout   = 8 * time.Second
	defaultGenerationTimeout = 120 * time.Second
	defaultParseTimeout      = 8 * time.Second
	defaultTranscribeTimeout = 8 * time.Second
	defaultSessionTTL        = 24 * time.Hour
	defaultMaxUploadBytes    = 10 << 20
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))
	if env == "production" && dbURL == "" && normalizeSessionStore(v.GetString("session_store")) == "postgres" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	cfg := Config{
		Port:            v.GetString("port"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),

		ObjectStoreType: normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:   v.GetString("local_store_dir"),
		AWSRegion:       v.GetString("aws_region"),
		S3Bucket:        v.GetString("s3_bucket"),
		S3Prefix:        v.GetString("s3_prefix"),
		SSEKMSKeyID:     v.GetString("sse_kms_key_id"),

		SessionStore:  normalizeSessionStore(v.GetString("session_store")),
		DatabaseURL:   dbURL,
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		SessionTTL:    v.GetDuration("session_ttl"),

		ReasoningProvider: normalizeProvider(v.GetString("reasoning_provider")),
		ReasoningModel:    v.GetString("reasoning_model"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		TranscribeModel:   v.GetString("transcribe_model"),

		AnalysisTimeout:   v.GetDuration("analysis_timeout"),
		GenerationTimeout: v.GetDuration("generation_timeout"),
		ParseTimeout:      v.GetDuration("parse_timeout"),
		TranscribeTimeout: v.GetDuration("transcribe_timeout"),

		BreakerEnabled:      v.GetBool("breaker_enabled"),
		BreakerMinRequests:  v.GetUint32("breaker_min_requests"),
		BreakerFailureRatio: v.GetFloat64("breaker_failure_ratio"),
		BreakerOpenTimeout:  v.GetDuration("breaker_open_timeout"),

		RateLimitRPM:   v.GetInt("rate_limit_rpm"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		RabbitMQURL: v.GetString("rabbitmq_url"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
	}
	return cfg.WithDefaults()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("cors_allow_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("object_store", "local")
	v.SetDefault("local_store_dir", "./data")
	v.SetDefault("session_store", "memory")
	v.SetDefault("redis_db", 0)
	v.SetDefault("session_ttl", defaultSessionTTL)
	v.SetDefault("reasoning_provider", "none")
	v.SetDefault("transcribe_model", "whisper-1")
	v.SetDefault("analysis_timeout", defaultAnalysisTimeout)
	v.SetDefault("generation_timeout", defaultGenerationTimeout)
	v.SetDefault("parse_timeout", defaultParseTimeout)
	v.SetDefault("transcribe_timeout", defaultTranscribeTimeout)
	v.SetDefault("breaker_enabled", true)
	v.SetDefault("breaker_min_requests", 5)
	v.SetDefault("breaker_failure_ratio", 0.6)
	v.SetDefault("breaker_open_timeout", 30*time.Second)
	v.SetDefault("rate_limit_rpm", 120)
	v.SetDefault("rate_limit_burst", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("max_upload_bytes", defaultMaxUploadBytes)
}

// WithDefaults fills zero values so hand-built configs (tests, tools) behave
// like loaded ones.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "dev"
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "8080"
	}
	if strings.TrimSpace(c.ObjectStoreType) == "" {
		c.ObjectStoreType = "local"
	}
	if strings.TrimSpace(c.LocalStoreDir) == "" {
		c.LocalStoreDir = "./data"
	}
	if strings.TrimSpace(c.SessionStore) == "" {
		c.SessionStore = "memory"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if strings.TrimSpace(c.ReasoningProvider) == "" {
		c.ReasoningProvider = "none"
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = defaultAnalysisTimeout
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = defaultGenerationTimeout
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = defaultParseTimeout
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = defaultTranscribeTimeout
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 5
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	return c
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeSessionStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg", "postgresql":
		return "postgres"
	case "redis":
		return "redis"
	default:
		return "memory"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "none"
	}
}
