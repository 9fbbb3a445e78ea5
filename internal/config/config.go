package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// 上游许可后端
	PermitAPIHost  string
	RequestTimeout time.Duration

	// 本地会话库
	DBPath string

	// 注册向导会话存活时间
	WizardSessionTTL time.Duration
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:       getEnv("PORT", "4000"),
		Debug:            getEnvBool("DEBUG", false),
		PermitAPIHost:    getEnv("PERMIT_API_HOST", "https://api.m6parking.ca/public/api"),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		DBPath:           getEnv("DB_PATH", "parkadmin.db"),
		WizardSessionTTL: getEnvDuration("WIZARD_SESSION_TTL", 30*time.Minute),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
