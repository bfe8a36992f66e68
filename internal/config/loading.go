package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"credential-hub/internal/errorkit"
)

// ExpandHomeDir expands a leading "~" or "${HOME}" in path to the user's
// home directory.
func ExpandHomeDir(path string) string {
	if path == "" {
		return path
	}
	if strings.Contains(path, "${HOME}") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "${HOME}", home)
		}
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

// LoadFromFile returns the default Config, optionally overridden by the
// YAML document at configPath, then by environment variables.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configPath != "" {
		expanded := ExpandHomeDir(configPath)
		if _, err := os.Stat(expanded); os.IsNotExist(err) {
			return nil, errorkit.Newf("configuration file not found: %s", expanded)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, errorkit.Wrap(err, "reading configuration file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errorkit.Wrap(err, "parsing configuration file")
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CREDENTIAL_HUB_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("CREDENTIAL_HUB_REGISTRY_BACKEND"); ok && v != "" {
		cfg.Registry.Backend = v
	}
	if v, ok := os.LookupEnv("CREDENTIAL_HUB_REGISTRY_DIR"); ok && v != "" {
		cfg.Registry.Directory = v
	}
}

// SaveToFile writes cfg as YAML to filePath, creating parent directories.
func (c *Config) SaveToFile(filePath string) error {
	expanded := ExpandHomeDir(filePath)
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return errorkit.Wrap(err, "creating configuration directory")
	}
	file, err := os.Create(expanded)
	if err != nil {
		return errorkit.Wrap(err, "creating configuration file")
	}
	defer file.Close()

	enc := yaml.NewEncoder(file)
	defer enc.Close()
	if err := enc.Encode(c); err != nil {
		return errorkit.Wrap(err, "encoding configuration")
	}
	return nil
}

// Validate reports whether cfg's fields are internally consistent.
func (c *Config) Validate() error {
	if !ValidLogLevel(c.LogLevel) {
		return errorkit.Newf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", c.LogLevel)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errorkit.Newf("server port must be between 0 and 65535")
	}
	if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return errorkit.Newf("TLS certificate and key files must be provided when TLS is enabled")
	}
	switch c.Registry.Backend {
	case "memory":
	case "file":
		if c.Registry.Directory == "" {
			return errorkit.Newf("registry directory must be set when using the file backend")
		}
	default:
		return errorkit.Newf("invalid registry backend: %s (must be one of: memory, file)", c.Registry.Backend)
	}
	if c.Revocation.DefaultMaximumCredentialCount == 0 {
		return errorkit.Newf("default maximum credential count must be positive")
	}
	return nil
}
