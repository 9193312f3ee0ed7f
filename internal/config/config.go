// Package config loads the integration settings kept in config.yaml: the
// reasoner endpoint, the HTTP surface and the notification sinks. Scheduling
// settings live in the store instead.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/dayplan/internal/constants"
)

type ReasonerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float32       `yaml:"temperature"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TelegramConfig struct {
	Enabled bool  `yaml:"enabled"`
	ChatID  int64 `yaml:"chat_id"`
	// Token is normally read from the keyring; a value here wins.
	Token string `yaml:"token,omitempty"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	// Password is normally read from the keyring; a value here wins.
	Password string `yaml:"password,omitempty"`
}

type NotifyConfig struct {
	Tray     TrayConfig     `yaml:"tray"`
	Telegram TelegramConfig `yaml:"telegram"`
	Email    EmailConfig    `yaml:"email"`
}

type Config struct {
	Reasoner ReasonerConfig `yaml:"reasoner"`
	Server   ServerConfig   `yaml:"server"`
	Notify   NotifyConfig   `yaml:"notify"`
	Debug    bool           `yaml:"debug"`
	LogJSON  bool           `yaml:"log_json"`
}

func Default() Config {
	return Config{
		Reasoner: ReasonerConfig{
			Model:       "llama3.1",
			Timeout:     60 * time.Second,
			Temperature: 0.2,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8737",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Tray:  TrayConfig{Enabled: true},
			Email: EmailConfig{SMTPPort: 587},
		},
	}
}

var userHomeDirFunc = os.UserHomeDir

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := userHomeDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load reads the YAML file at path over Default. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = constants.DefaultYAMLConfig
	}
	path, err := ExpandPath(path)
	if err != nil {
		return cfg, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Notify.Telegram.Enabled && c.Notify.Telegram.ChatID == 0 {
		return errors.New("notify.telegram.chat_id is required when telegram is enabled")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.SMTPHost == "" || c.Notify.Email.To == "" {
			return errors.New("notify.email needs smtp_host and to when enabled")
		}
	}
	if c.Reasoner.Timeout < 0 {
		return errors.New("reasoner.timeout must not be negative")
	}
	return nil
}

// Save writes the config as YAML, creating the parent directory.
func Save(path string, cfg Config) error {
	path, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
