// Package notewave wires the workspace core into a runnable service:
// configuration, store selection, HTTP transport and lifecycle.
package notewave

import (
	"flag"
	"fmt"
	"os"
)

// Backend names accepted by -backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSurreal  = "surreal"
)

// Config is the service configuration. Flags win over environment
// variables; environment variables win over defaults.
type Config struct {
	Addr    string
	Backend string

	PostgresDSN string

	SurrealURL       string
	SurrealNamespace string
	SurrealDatabase  string
	SurrealUsername  string
	SurrealPassword  string

	AuthSecret string
	AuthToken  string

	ReadOnly bool
	LogLevel string
}

// Command is the subcommand selected on the command line.
type Command string

const (
	CommandRun     Command = "run"
	CommandMigrate Command = "migrate"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Parse reads the subcommand and flags from args (excluding the program
// name).
func Parse(args []string) (*Config, Command, error) {
	cmd := CommandRun
	if len(args) > 0 {
		switch args[0] {
		case string(CommandRun):
			cmd = CommandRun
			args = args[1:]
		case string(CommandMigrate):
			cmd = CommandMigrate
			args = args[1:]
		}
	}

	fs := flag.NewFlagSet("notewave", flag.ContinueOnError)
	cfg := &Config{}
	fs.StringVar(&cfg.Addr, "addr", getEnv("NOTEWAVE_ADDR", ":8080"), "listen address")
	fs.StringVar(&cfg.Backend, "backend", getEnv("NOTEWAVE_BACKEND", BackendMemory), "store backend: memory, postgres or surreal")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", getEnv("NOTEWAVE_POSTGRES_DSN", ""), "PostgreSQL DSN")
	fs.StringVar(&cfg.SurrealURL, "surreal-url", getEnv("NOTEWAVE_SURREAL_URL", "ws://localhost:8000/rpc"), "SurrealDB websocket endpoint")
	fs.StringVar(&cfg.SurrealNamespace, "surreal-ns", getEnv("NOTEWAVE_SURREAL_NS", "notewave"), "SurrealDB namespace")
	fs.StringVar(&cfg.SurrealDatabase, "surreal-db", getEnv("NOTEWAVE_SURREAL_DB", "notewave"), "SurrealDB database")
	fs.StringVar(&cfg.SurrealUsername, "surreal-user", getEnv("NOTEWAVE_SURREAL_USER", ""), "SurrealDB username")
	fs.StringVar(&cfg.SurrealPassword, "surreal-pass", getEnv("NOTEWAVE_SURREAL_PASS", ""), "SurrealDB password")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", getEnv("NOTEWAVE_AUTH_SECRET", ""), "HMAC secret for auth tokens")
	fs.StringVar(&cfg.AuthToken, "auth-token", getEnv("NOTEWAVE_AUTH_TOKEN", ""), "auth token for the acting user")
	fs.BoolVar(&cfg.ReadOnly, "read-only", os.Getenv("NOTEWAVE_READ_ONLY") == "true", "reject all writes")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("NOTEWAVE_LOG_LEVEL", "info"), "zerolog level")

	if err := fs.Parse(args); err != nil {
		return nil, cmd, err
	}
	if err := cfg.validate(); err != nil {
		return nil, cmd, err
	}
	return cfg, cmd, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("backend %q requires -postgres-dsn", c.Backend)
		}
	case BackendSurreal:
		if c.SurrealURL == "" {
			return fmt.Errorf("backend %q requires -surreal-url", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
