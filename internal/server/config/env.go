package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over it.
//
// Recognized variables:
//
//	SERVER_ADDRESS                    HTTP bind address
//	DATABASE_DSN                      PostgreSQL DSN
//	SECRET_KEY                        JWT HMAC secret
//	JWT_ISSUER / JWT_AUDIENCE         registered claims
//	ACCESS_TOKEN_VALIDITY_MINUTES     access token lifetime
//	REFRESH_TOKEN_VALIDITY_DAYS       refresh token lifetime
//	RECAPTCHA_SECRET                  reCAPTCHA shared secret
func parseEnv(config *Config) {
	_ = godotenv.Load()

	config.EndpointAddrHTTP = getEnv("SERVER_ADDRESS", config.EndpointAddrHTTP)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getEnv("SECRET_KEY", config.SecretKey)
	config.JWTIssuer = getEnv("JWT_ISSUER", config.JWTIssuer)
	config.JWTAudience = getEnv("JWT_AUDIENCE", config.JWTAudience)
	config.RecaptchaSecret = getEnv("RECAPTCHA_SECRET", config.RecaptchaSecret)

	if minutes := getEnvAsInt("ACCESS_TOKEN_VALIDITY_MINUTES", 0); minutes > 0 {
		config.AccessTokenValidityDuration = time.Duration(minutes) * time.Minute
	}
	if days := getEnvAsInt("REFRESH_TOKEN_VALIDITY_DAYS", 0); days > 0 {
		config.RefreshTokenValidityDuration = time.Duration(days) * 24 * time.Hour
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
