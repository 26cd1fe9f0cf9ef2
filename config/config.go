package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Server captures the dashboard server configuration.
type Server struct {
	Port        int
	DB          string
	CORSOrigins []string
	LogFormat   string
	LogLevel    slog.Level
}

// Default values used when the environment is silent.
const (
	DefaultPort = 8080
	DefaultDB   = "cumplimiento.db"
)

var defaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"}

// FromEnv builds a Server config from environment variables so main stays lean.
// Command-line flags in cmd/server override these values.
func FromEnv() Server {
	cfg := Server{
		Port:        DefaultPort,
		DB:          DefaultDB,
		CORSOrigins: defaultCORSOrigins,
		LogFormat:   "text",
		LogLevel:    slog.LevelInfo,
	}

	if port, err := strconv.Atoi(os.Getenv("COMPLIANCE_PORT")); err == nil && port > 0 {
		cfg.Port = port
	}
	if db := os.Getenv("COMPLIANCE_DB"); db != "" {
		cfg.DB = db
	}
	if origins := os.Getenv("COMPLIANCE_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		// unknown levels keep the default
		_ = cfg.LogLevel.UnmarshalText([]byte(level))
	}
	return cfg
}

// IsPostgres reports whether DB is a PostgreSQL connection string rather
// than a SQLite path.
func (s Server) IsPostgres() bool {
	return strings.HasPrefix(s.DB, "postgres://") || strings.HasPrefix(s.DB, "postgresql://")
}

// NewLogger builds the process logger for the configured format and level.
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
