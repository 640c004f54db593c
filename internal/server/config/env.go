package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays environment variables. A .env file in the working
// directory is loaded first if present; variables already set in the
// process environment win over it.
//
// Variable names match the deployment contract: DATABASE_URL, REDIS_URL,
// JWT_SECRET_KEY, JWT_ALGORITHM and ACCESS_TOKEN_EXPIRE_MINUTES.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	config.EndpointAddrHTTP = getenv("HTTP_ADDR", config.EndpointAddrHTTP)
	config.EndpointAddrGRPC = getenv("GRPC_ADDR", config.EndpointAddrGRPC)
	config.DatabaseDSN = getenv("DATABASE_URL", config.DatabaseDSN)
	config.RunMigrations = getenvBool("RUN_MIGRATIONS", config.RunMigrations)
	config.RedisURL = getenv("REDIS_URL", config.RedisURL)
	config.SecretKey = getenv("JWT_SECRET_KEY", config.SecretKey)
	config.SigningAlgorithm = getenv("JWT_ALGORITHM", config.SigningAlgorithm)
	if minutes := getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 0); minutes > 0 {
		config.AccessTokenValidityDuration = time.Duration(minutes) * time.Minute
	}
	config.ProfileCacheTTL = getenvDuration("PROFILE_CACHE_TTL", config.ProfileCacheTTL)
	config.ResetTokenTTL = getenvDuration("RESET_TOKEN_TTL", config.ResetTokenTTL)
	config.BcryptCost = getenvInt("BCRYPT_COST", config.BcryptCost)
	config.AppBaseURL = getenv("APP_BASE_URL", config.AppBaseURL)
	config.LogLevel = getenv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getenv("LOG_FORMAT", config.LogFormat)
	config.CORSAllowedOrigins = getenvList("CORS_ALLOWED_ORIGINS", config.CORSAllowedOrigins)
	config.S3RootUser = getenv("S3_ACCESS_KEY", config.S3RootUser)
	config.S3RootPassword = getenv("S3_SECRET_KEY", config.S3RootPassword)
	config.S3Bucket = getenv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getenv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getenv("S3_ENDPOINT", config.S3BaseEndpoint)
	config.S3PublicURL = getenv("S3_PUBLIC_URL", config.S3PublicURL)
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getenvList splits a comma-separated value, dropping blank items.
func getenvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getenvDuration accepts a Go duration in KEY or a number of seconds in KEY_SECONDS.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
