package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"postgres"` // postgres|sqlite
	PostgresURI string `env:"POSTGRES_URI"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"yoodesk.db"`

	// Optional. Without Redis the service uses in-process workers and caches.
	RedisURL string `env:"REDIS_URL"`
	// Optional. Without Mongo job runs are only logged.
	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"yoodesk"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"` // openai|vertex|noop
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	VertexProject  string        `env:"VERTEX_PROJECT"`
	VertexLocation string        `env:"VERTEX_LOCATION" envDefault:"us-central1"`
	VertexModel    string        `env:"VERTEX_MODEL" envDefault:"gemini-1.5-flash"`

	WorkerCount     int           `env:"WORKER_COUNT" envDefault:"4"`
	WorkerQueueSize int           `env:"WORKER_QUEUE_SIZE" envDefault:"256"`
	JobStream       string        `env:"JOB_STREAM" envDefault:"jobs:stream"`
	JobGroup        string        `env:"JOB_GROUP" envDefault:"yoodesk-workers"`
	JobRunTTL       time.Duration `env:"JOB_RUN_TTL" envDefault:"168h"`

	KBFetchTimeout time.Duration `env:"KB_FETCH_TIMEOUT" envDefault:"5s"`
	ExpertCacheTTL time.Duration `env:"EXPERT_CACHE_TTL" envDefault:"1m"`
}

// Load parses the environment. Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set")
	}
	if cfg.DBDriver == "postgres" && cfg.PostgresURI == "" {
		return nil, errors.New("POSTGRES_URI environment variable is not set")
	}
	return cfg, nil
}
