package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config is the application's top-level configuration, assembled by
// NewDefaultConfig and optionally overridden by a YAML file and flags.
type Config struct {
	// General configuration
	LogLevel string

	// Server configuration
	Server ServerConfig

	// Registry configuration
	Registry RegistryConfig

	// Revocation configuration
	Revocation RevocationConfig
}

// ServerConfig configures the HTTP transport shell around pkg/dispatch.
type ServerConfig struct {
	Port            int
	TLSEnabled      bool
	TLSCertFile     string
	TLSKeyFile      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MessagesPath    string
	HealthCheckPath string
	MetricsPath     string
}

// RegistryConfig selects the Registry backend and its storage location.
type RegistryConfig struct {
	// Backend is "memory" or "file".
	Backend   string
	Directory string
}

// RevocationConfig holds defaults applied when an operator provisions a
// new RevocationRegistryDefinition without specifying them explicitly.
type RevocationConfig struct {
	DefaultMaximumCredentialCount uint32
	TailsGenerationBatchSize      uint32
}

// NewDefaultConfig returns a Config with the system's default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MessagesPath:    "/messages",
			HealthCheckPath: "/health",
			MetricsPath:     "/metrics",
		},
		Registry: RegistryConfig{
			Backend:   "memory",
			Directory: "${HOME}/.credential-hub/registry",
		},
		Revocation: RevocationConfig{
			DefaultMaximumCredentialCount: 1000,
			TailsGenerationBatchSize:      100,
		},
	}
}

// AddFlagsToCommand binds the general and registry flags to cmd.
func (c *Config) AddFlagsToCommand(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, fatal)")
	cmd.PersistentFlags().StringVar(&c.Registry.Backend, "registry-backend", c.Registry.Backend, "Registry backend (memory, file)")
	cmd.PersistentFlags().StringVar(&c.Registry.Directory, "registry-dir", c.Registry.Directory, "Directory for the file registry backend")
	cmd.PersistentFlags().Uint32Var(&c.Revocation.DefaultMaximumCredentialCount, "default-max-credentials", c.Revocation.DefaultMaximumCredentialCount, "Default maximum_credential_count for new revocation registries")
}

// AddServerFlags binds server-specific flags to cmd.
func (c *Config) AddServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.Server.Port, "port", c.Server.Port, "Server listening port")
	cmd.Flags().BoolVar(&c.Server.TLSEnabled, "tls", c.Server.TLSEnabled, "Enable TLS")
	cmd.Flags().StringVar(&c.Server.TLSCertFile, "tls-cert", c.Server.TLSCertFile, "TLS certificate file")
	cmd.Flags().StringVar(&c.Server.TLSKeyFile, "tls-key", c.Server.TLSKeyFile, "TLS key file")
	cmd.Flags().DurationVar(&c.Server.ReadTimeout, "read-timeout", c.Server.ReadTimeout, "HTTP server read timeout")
	cmd.Flags().DurationVar(&c.Server.WriteTimeout, "write-timeout", c.Server.WriteTimeout, "HTTP server write timeout")
	cmd.Flags().DurationVar(&c.Server.ShutdownTimeout, "shutdown-timeout", c.Server.ShutdownTimeout, "HTTP server shutdown timeout")
}

// ValidLogLevel reports whether level names one of the Logger's levels.
func ValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error", "fatal":
		return true
	default:
		return false
	}
}
