package config

import (
	"log"
	"os"
	"time"
)

type Config struct {
	AppPort string

	RedisAddr string

	NewsAPIKey        string
	PerplexityAPIKey  string
	PerplexityBaseURL string
	GroqAPIKey        string
	GroqBaseURL       string

	AggregateTTL time.Duration
	ClassifyTTL  time.Duration

	// 预热任务的 cron 表达式，留空则不启用
	WarmCronSpec string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		NewsAPIKey:        getEnv("NEWSAPI_KEY", ""),
		PerplexityAPIKey:  getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		AggregateTTL:      getEnvDuration("AGG_CACHE_TTL", 5*time.Minute),
		ClassifyTTL:       getEnvDuration("CLASSIFY_CACHE_TTL", 10*time.Minute),
		WarmCronSpec:      getEnv("WARM_CRON_SPEC", ""),
		BasicAuthUser:     getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:     getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s aggTTL=%s classifyTTL=%s warm=%q",
		cfg.AppPort, cfg.AggregateTTL, cfg.ClassifyTTL, cfg.WarmCronSpec)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("warn: invalid duration for %s: %q, using default %s", key, v, def)
	}
	return def
}
