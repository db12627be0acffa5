package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the registry service.
type Server struct {
	Addr        string
	DatabaseURL string
	RedisURL    string
	AdminToken  string
}

// LookupCacheTTL bounds how long reverse-lookup results may be served from
// cache before a fresh parse and store read.
var LookupCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CANONREG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("CANONREG_ADMIN_TOKEN")
	if adminToken == "" {
		// Use a default for development - should be overridden in production
		adminToken = "dev-admin-token-change-in-production"
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AdminToken:  adminToken,
	}
}
