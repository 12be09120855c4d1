package config

import (
	"os"
	"time"

	"flashcard-challenge-service/pkg/validator"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env" validate:"omitempty,oneof=development production staging"`
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver" validate:"omitempty,oneof=memory postgres sqlite"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"min=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Challenge struct {
		QuestionCount      int    `yaml:"question_count" validate:"min=0,max=50"`
		TimedBudgetSeconds int    `yaml:"timed_budget_seconds" validate:"min=0"`
		Tick               string `yaml:"tick"`
		StoreConcurrency   int    `yaml:"store_concurrency" validate:"min=0,max=64"`
		CacheTTL           string `yaml:"cache_ttl"`
	} `yaml:"challenge"`
	Generator struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"generator"`
	RateLimit struct {
		Limit  int    `yaml:"limit" validate:"min=0"`
		Window string `yaml:"window"`
	} `yaml:"rate_limit"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, fills secrets from the environment and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if err := validator.ValidateStruct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StorageDriver resolves the backend, inferring postgres from a configured URL.
func (c Config) StorageDriver() string {
	if c.Storage.Driver != "" {
		return c.Storage.Driver
	}
	if c.Postgres.URL != "" {
		return "postgres"
	}
	return "memory"
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
