package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// public base URL used in verification links and avatar URLs
	PublicBaseURL string
	AvatarDir     string

	JWTSecret       string
	SessionTTLHours int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional, deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 3000)

	return Config{
		Env:   env,
		Port:  port,
		DBURL: buildDBURL(),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		AvatarDir:     getEnv("AVATAR_DIR", "public/avatars"),

		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 24),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@monocontact.local"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CORSOrigins: getEnvList("CORS_ORIGINS"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "monocontact")
	pass := getEnv("DB_PASSWORD", "monocontact")
	name := getEnv("DB_NAME", "monocontact")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)

	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)

		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
