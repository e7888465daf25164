package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Ai       AIConfig
	Storage  StorageConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// SessionConfig carries the lifecycle policy knobs for journal sessions.
type SessionConfig struct {
	ReconnectTimeoutSeconds int // max wall-clock pause before a session is locked
	DailyAttempts           int // reflection sessions allowed per (user, day)
	InterTurnGapSeconds     int // gap inserted between chained turn timestamps
	FreeMaxDurationSeconds  int // entitlement fallback for the free plan
	ProMaxDurationSeconds   int // entitlement fallback for the pro plan
}

type AIConfig struct {
	LLMProvider   string // "ollama", "huggingface"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
	TTSProvider   string // "gateway" or "elevenlabs"
	TTSGatewayURL string
	TTSVoice      string
}

type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // base URL for archived audio objects
}

type APIKeys struct {
	ElevenLabs   string
	HuggingFace  string
	ArchiveTopic string // watermill topic for the archival worker
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Session: SessionConfig{
			ReconnectTimeoutSeconds: getEnvAsInt("SESSION_RECONNECT_TIMEOUT_SECONDS", 300),
			DailyAttempts:           getEnvAsInt("SESSION_DAILY_ATTEMPTS", 1),
			InterTurnGapSeconds:     getEnvAsInt("SESSION_INTER_TURN_GAP_SECONDS", 1),
			FreeMaxDurationSeconds:  getEnvAsInt("SESSION_FREE_MAX_DURATION_SECONDS", 180),
			ProMaxDurationSeconds:   getEnvAsInt("SESSION_PRO_MAX_DURATION_SECONDS", 900),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			TTSProvider:   getEnv("TTS_PROVIDER", "gateway"),
			TTSGatewayURL: getEnv("TTS_GATEWAY_URL", "http://localhost:5002"),
			TTSVoice:      getEnv("TTS_VOICE", "journal-default"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", "journal-audio"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},
		Keys: APIKeys{
			ElevenLabs:   getEnv("ELEVENLABS_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			ArchiveTopic: getEnv("ARCHIVE_TURN_TOPIC_NAME", "ARCHIVE_TURN_AUDIO"),
		},
	}
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
