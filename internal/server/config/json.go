package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/contacts/internal/flagx"
	"github.com/dmitrijs2005/contacts/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30m" and integer nanoseconds are accepted. Only
// fields present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	RunMigrations               *bool          `json:"run_migrations"`
	RedisURL                    string         `json:"redis_url"`
	SecretKey                   string         `json:"secret_key"`
	SigningAlgorithm            string         `json:"signing_algorithm"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	ProfileCacheTTL             timex.Duration `json:"profile_cache_ttl"`
	ResetTokenTTL               timex.Duration `json:"reset_token_ttl"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	AppBaseURL                  string         `json:"app_base_url"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
	CORSAllowedOrigins          []string       `json:"cors_allowed_origins"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3PublicURL                 string         `json:"s3_public_url"`
}

// parseJson loads the file named by -c/-config or the CONFIG variable
// into config. Without the flag nothing happens. An unreadable or invalid
// file panics: the server must not start on a half-applied configuration.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SigningAlgorithm, c.SigningAlgorithm)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ProfileCacheTTL.Duration > 0 {
		config.ProfileCacheTTL = c.ProfileCacheTTL.Duration
	}
	if c.ResetTokenTTL.Duration > 0 {
		config.ResetTokenTTL = c.ResetTokenTTL.Duration
	}
	if c.BcryptCost > 0 {
		config.BcryptCost = c.BcryptCost
	}
	setString(&config.AppBaseURL, c.AppBaseURL)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
