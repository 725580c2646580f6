package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string
	// BaseURL is the public base URL used to build deep links in outbound
	// notifications. Empty means links fall back to relative paths.
	BaseURL string
	// PostgresDSN selects the Postgres store backend when non-empty;
	// otherwise the in-memory stores are used.
	PostgresDSN     string
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("CONVOCATORIAS_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Server{
		Addr:            addr,
		BaseURL:         os.Getenv("CONVOCATORIAS_BASE_URL"),
		PostgresDSN:     os.Getenv("CONVOCATORIAS_POSTGRES_DSN"),
		ShutdownTimeout: 10 * time.Second,
	}
}
