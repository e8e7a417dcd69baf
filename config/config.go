package config

import (
	"os"
	"strconv"
	"time"
)

// AppConfig holds everything the process needs from the environment. It is
// built once in main and handed to the pieces that need it; nothing below
// main reads os.Getenv directly.
type AppConfig struct {
	Port        string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	JWTSecret   []byte
	TokenTTL    time.Duration
	OTPLength   int
	OTPTTL      time.Duration
	FrontendURL string

	PostmarkToken string
	EmailFrom     string
}

// Load builds the config from environment variables with development
// defaults matching docker-compose.
func Load() AppConfig {
	return AppConfig{
		Port:          getenv("PORT", "5000"),
		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGODB_DB", "organic_grocery"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		JWTSecret:     []byte(getenv("JWT_SECRET", "default-jwt-secret")),
		TokenTTL:      7 * 24 * time.Hour,
		OTPLength:     getenvInt("OTP_LENGTH", 6),
		OTPTTL:        time.Duration(getenvInt("OTP_EXPIRE_MINUTES", 10)) * time.Minute,
		FrontendURL:   getenv("FRONTEND_URL", "http://localhost:3000"),
		PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
		EmailFrom:     getenv("EMAIL_FROM", "noreply@organicgrocery.com"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
