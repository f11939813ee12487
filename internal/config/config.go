package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Preview  PreviewConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables external events
	RedisURL           string // empty selects the in-memory preview cache
	DebugLogCapacity   int
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AIConfig struct {
	LLMProvider    string // "openai" or "ollama"
	LLMModel       string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OllamaBaseURL  string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type PreviewConfig struct {
	TTL            time.Duration
	MaxFixAttempts int
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
	// SampleRatio applies to root spans; children follow their parent.
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			DebugLogCapacity:   getEnvAsInt("DEBUG_LOG_CAPACITY", 50),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Timeout:        time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 2),
			RetryBaseDelay: time.Duration(getEnvAsInt("LLM_RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
		},
		Preview: PreviewConfig{
			TTL:            time.Duration(getEnvAsInt("PREVIEW_TTL_MINUTES", 30)) * time.Minute,
			MaxFixAttempts: getEnvAsInt("PREVIEW_MAX_FIX_ATTEMPTS", 2),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

// IsProduction selects the JSON console encoder.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
