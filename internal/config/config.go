// Package config loads application configuration from environment
// variables. Required variables are enforced with fatal loaders; tunables
// fall back to defaults.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Strings for identifiers
// and secrets, ints for token lifetimes.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret      string // secret used to sign access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days

	GoogleClientID     string // OAuth client id (also the expected id-token audience)
	GoogleClientSecret string // OAuth client secret
	GoogleRedirectURI  string // OAuth redirect URI

	FCMEndpoint  string // push gateway endpoint
	FCMServerKey string // push gateway server key (empty disables sending)
}

// Load reads configuration from the environment. Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 365),

		GoogleClientID:     must("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: must("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  must("GOOGLE_REDIRECT_URI"),

		FCMEndpoint:  envStr("FCM_ENDPOINT", "https://fcm.googleapis.com/fcm/send"),
		FCMServerKey: os.Getenv("FCM_SERVER_KEY"),
	}
}

// must retrieves the value of a required environment variable, exiting
// with a fatal log message when it is unset or empty.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
