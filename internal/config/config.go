package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	JWTSecret  string

	// Optional collaborators; empty disables them.
	RedisAddr string
	AMQPURL   string

	CORSOrigin  string
	InternalKey string

	DeliveryFee           int64
	HandoverMaxAttempts   int
	HandoverAttemptWindow time.Duration
	NotifyInterval        time.Duration
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		AMQPURL:    os.Getenv("AMQP_URL"),

		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
		InternalKey: os.Getenv("INTERNAL_SECRET_KEY"),

		DeliveryFee:           int64(getEnvInt("DELIVERY_FEE", 15000)),
		HandoverMaxAttempts:   getEnvInt("HANDOVER_MAX_ATTEMPTS", 5),
		HandoverAttemptWindow: getEnvDuration("HANDOVER_ATTEMPT_WINDOW", 15*time.Minute),
		NotifyInterval:        getEnvDuration("NOTIFY_INTERVAL", time.Minute),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
