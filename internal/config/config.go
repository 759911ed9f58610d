package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	LineChannelSecret string
	LineChannelToken  string
	DatabaseURL       string
	RedisURL          string

	OpenAIAPIKey string
	OpenAIModel  string

	CWAToken    string
	MoenvAPIKey string

	PredictorURL  string
	BreedModelURL string
	FilterSvcURL  string

	StaticDir string
	BaseURL   string
	Port      int
}

func Load() *Config {
	cfg := &Config{
		LineChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelToken:  os.Getenv("LINE_CHANNEL_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		CWAToken:          os.Getenv("CWA_TOKEN"),
		MoenvAPIKey:       os.Getenv("MOENV_API_KEY"),
		PredictorURL:      strings.TrimSpace(os.Getenv("PREDICTOR_URL")),
		BreedModelURL:     strings.TrimSpace(os.Getenv("BREED_MODEL_URL")),
		FilterSvcURL:      strings.TrimSpace(os.Getenv("FILTER_SERVICE_URL")),
	}

	if cfg.LineChannelSecret == "" {
		log.Println("Warning: LINE_CHANNEL_SECRET not set")
	}
	if cfg.LineChannelToken == "" {
		log.Println("Warning: LINE_CHANNEL_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, AI classification and free chat will be disabled")
	}
	if cfg.CWAToken == "" {
		log.Println("Warning: CWA_TOKEN not set, earthquake and weather lookups will fail")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if cfg.StaticDir == "" {
		cfg.StaticDir = "./static"
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_URL")), "/")
	if cfg.BaseURL == "" {
		log.Println("Warning: BASE_URL not set, generated image replies will be skipped")
	}

	cfg.Port = 8080
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Port = n
		}
	}

	return cfg
}
