package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Values are read once at
// startup and passed explicitly into constructors; nothing reads the
// environment after FromEnv returns.
type Server struct {
	Addr        string
	DatabaseURL string

	// ProviderTimeout bounds each outbound provider request.
	ProviderTimeout time.Duration

	// InmatesCacheTTL is how long a fetched entry stays fresh.
	InmatesCacheTTL time.Duration

	// MinReleaseDays triggers a warning when an inmate is within this many
	// days of a parsed release date.
	MinReleaseDays int

	// MinPostmarkDays triggers a warning when a proposed postmark is within
	// this many days of the last filled one.
	MinPostmarkDays int

	// MaxLookups bounds the per-inmate lookup history.
	MaxLookups int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            envString("IBP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("IBP_DATABASE_URL"),
		ProviderTimeout: time.Duration(envInt("IBP_PROVIDER_TIMEOUT_SECONDS", 10)) * time.Second,
		InmatesCacheTTL: time.Duration(envInt("IBP_INMATES_CACHE_TTL_HOURS", 12)) * time.Hour,
		MinReleaseDays:  envInt("IBP_MIN_RELEASE_DAYS", 60),
		MinPostmarkDays: envInt("IBP_MIN_POSTMARK_DAYS", 90),
		MaxLookups:      envInt("IBP_MAX_LOOKUPS", 3),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
