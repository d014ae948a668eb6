package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	// 请求之间的最小间隔，保护上游出版商接口
	FetchDelay time.Duration
	// 采集时是否附加期刊评分
	EnrichRank bool

	BasicAuthUser string
	BasicAuthPass string
	WebRoot       string
}

func Load() *Config {
	// .env 不存在时继续使用进程环境变量
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v (using environment variables only)", err)
	}

	cfg := &Config{
		AppPort:       getEnv("APP_PORT", "9000"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=cfphub password=cfphub dbname=cfphub port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6380"),
		FetchDelay:    getEnvDurationMS("FETCH_DELAY_MS", time.Second),
		EnrichRank:    getEnv("ENRICH_RANK", "true") == "true",
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
		WebRoot:       getEnv("WEB_ROOT", ""),
	}

	log.Printf("config loaded: port=%s delay=%s enrich=%t", cfg.AppPort, cfg.FetchDelay, cfg.EnrichRank)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDurationMS(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		log.Printf("invalid %s=%q, using default %s", key, v, def)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
