package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Config struct {
	HTTPPort        int
	DBPath          string
	KeyPrefix       string
	MaxImageBytes   int
	LogLevel        string
	ShutdownTimeout time.Duration
	SMTPEnabled     bool
	SMTPPort        int
	SMTPAuthEnabled bool
	SMTPUsername    string
	SMTPPassword    string
}

func Load() Config {
	return Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 3025),
		DBPath:          getEnvStringAllowEmpty("DB_PATH", "orgmail.db"),
		KeyPrefix:       getEnvString("KEY_PREFIX", "orgmail"),
		MaxImageBytes:   getEnvInt("MAX_IMAGE_BYTES", 2<<20),
		LogLevel:        getEnvString("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SMTPEnabled:     getEnvBool("SMTP_ENABLED", false),
		SMTPPort:        getEnvInt("SMTP_PORT", 2025),
		SMTPAuthEnabled: getEnvBool("SMTP_AUTH_ENABLED", true),
		SMTPUsername:    getEnvString("SMTP_USERNAME", "orgmail"),
		SMTPPassword:    getEnvString("SMTP_PASSWORD", "orgmail"),
	}
}

// RegisterFlags attaches the flags that may override environment values.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.Int("http-port", 0, "HTTP listen port (overrides HTTP_PORT)")
	flags.String("db", "", "Path to the sqlite database (overrides DB_PATH)")
	flags.String("log-level", "", "Logging level: debug, info, warn, error")
	flags.Bool("smtp", false, "Accept incoming correspondence over SMTP (overrides SMTP_ENABLED)")
	flags.Int("smtp-port", 0, "SMTP intake port (overrides SMTP_PORT)")
}

// LoadFromCommand reads the environment and applies any flag the user set
// explicitly on cmd.
func LoadFromCommand(cmd *cobra.Command) (Config, error) {
	cfg := Load()
	flags := cmd.Flags()

	if flags.Changed("http-port") {
		port, err := flags.GetInt("http-port")
		if err != nil {
			return Config{}, fmt.Errorf("read http-port flag: %w", err)
		}
		cfg.HTTPPort = port
	}
	if flags.Changed("db") {
		path, err := flags.GetString("db")
		if err != nil {
			return Config{}, fmt.Errorf("read db flag: %w", err)
		}
		cfg.DBPath = strings.TrimSpace(path)
	}
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return Config{}, fmt.Errorf("read log-level flag: %w", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(level))
	}
	if flags.Changed("smtp") {
		enabled, err := flags.GetBool("smtp")
		if err != nil {
			return Config{}, fmt.Errorf("read smtp flag: %w", err)
		}
		cfg.SMTPEnabled = enabled
	}
	if flags.Changed("smtp-port") {
		port, err := flags.GetInt("smtp-port")
		if err != nil {
			return Config{}, fmt.Errorf("read smtp-port flag: %w", err)
		}
		cfg.SMTPPort = port
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("invalid http port %d", cfg.HTTPPort)
	}
	if cfg.SMTPEnabled && (cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535) {
		return Config{}, fmt.Errorf("invalid smtp port %d", cfg.SMTPPort)
	}
	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

// getEnvStringAllowEmpty keeps an explicitly empty value instead of falling
// back.
func getEnvStringAllowEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
