package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pion/logging"
	"github.com/spf13/viper"
)

// Config is the CLI configuration.
type Config struct {
	// ClientID is the persistent pairing identity of this client.
	ClientID string `mapstructure:"client_id"`

	// Name and Model identify this client to devices.
	Name  string `mapstructure:"name"`
	Model string `mapstructure:"model"`

	// LogLevel: disabled, error, warn, info, debug or trace.
	LogLevel string `mapstructure:"log_level"`

	// Timeout bounds device round trips.
	Timeout time.Duration `mapstructure:"timeout"`

	// BrowseTimeout bounds discovery scans.
	BrowseTimeout time.Duration `mapstructure:"browse_timeout"`

	// Credentials maps device addresses to stored pairing credentials.
	Credentials map[string]string `mapstructure:"credentials"`
}

func defaultConfig() *Config {
	return &Config{
		ClientID:      "castkit-client",
		Name:          "castkit",
		Model:         "castkit CLI",
		LogLevel:      "error",
		Timeout:       5 * time.Second,
		BrowseTimeout: 5 * time.Second,
		Credentials:   make(map[string]string),
	}
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".castkit", "castkit.yaml"), nil
}

// loadConfig reads configuration from path if non-empty, otherwise from
// the default locations, with CASTKIT_* environment overrides.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CASTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("client_id", cfg.ClientID)
	v.SetDefault("name", cfg.Name)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("browse_timeout", cfg.BrowseTimeout)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("castkit")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".castkit"))
		}
	}

	// A missing config file is fine; pairing creates it.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Credentials == nil {
		cfg.Credentials = make(map[string]string)
	}
	return cfg, nil
}

// saveCredential persists a pairing credential under the device address,
// creating the config file if needed.
func saveCredential(path string, cfg *Config, addr, credential string) error {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	cfg.Credentials[addr] = credential

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("client_id", cfg.ClientID)
	v.Set("name", cfg.Name)
	v.Set("model", cfg.Model)
	v.Set("log_level", cfg.LogLevel)
	v.Set("timeout", cfg.Timeout.String())
	v.Set("browse_timeout", cfg.BrowseTimeout.String())
	v.Set("credentials", cfg.Credentials)
	return v.WriteConfigAs(path)
}

func loggerFactory(level string) (logging.LoggerFactory, error) {
	f := logging.NewDefaultLoggerFactory()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "disabled", "off":
		f.DefaultLogLevel = logging.LogLevelDisabled
	case "error":
		f.DefaultLogLevel = logging.LogLevelError
	case "warn", "warning":
		f.DefaultLogLevel = logging.LogLevelWarn
	case "info":
		f.DefaultLogLevel = logging.LogLevelInfo
	case "debug":
		f.DefaultLogLevel = logging.LogLevelDebug
	case "trace":
		f.DefaultLogLevel = logging.LogLevelTrace
	default:
		return nil, fmt.Errorf("invalid log_level: %q", level)
	}
	return f, nil
}
