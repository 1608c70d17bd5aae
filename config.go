package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	autoDiskPath     = "auto"
	passwordEnv      = "INFOMAIL_SENDER_PASSWORD"
	defaultIPEchoURL = "https://api.ipify.org"
	defaultPiUser    = "pi"
)

type Config struct {
	SenderMail     string `yaml:"sender_mail"`
	SenderPassword string `yaml:"sender_password"`
	ReceiverMail   string `yaml:"receiver_mail"`
	SMTPServer     string `yaml:"smtp_server_address"`
	SMTPPort       int    `yaml:"smtp_server_port"`
	DiskPath       string `yaml:"disk_path"`
	SendHour       int    `yaml:"send_hour"`
	SendMinute     int    `yaml:"send_minute"`

	AssetsDir     string        `yaml:"assets_dir"`
	IPEchoURL     string        `yaml:"ip_echo_url"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	SMTPTimeout   time.Duration `yaml:"smtp_timeout"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	CheckInterval time.Duration `yaml:"check_interval"`

	Pi     PiConfig     `yaml:"pi"`
	Status StatusConfig `yaml:"status"`
}

// PiConfig holds the SSH hints shown in Raspberry Pi reports.
type PiConfig struct {
	External     bool   `yaml:"external"`
	ExternalPort int    `yaml:"external_port"`
	LocalPort    int    `yaml:"local_port"`
	User         string `yaml:"user"`
}

// StatusConfig enables the local status server when Port is set.
type StatusConfig struct {
	Bind  string `yaml:"bind"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s StatusConfig) Enabled() bool { return s.Port != 0 }

func (s StatusConfig) Addr() string {
	bind := s.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", bind, s.Port)
}

// DiskPathFor resolves the "auto" disk path to the system drive of the variant.
func (c *Config) DiskPathFor(v HostVariant) string {
	if c.DiskPath != autoDiskPath {
		return c.DiskPath
	}
	if v == VariantWindows {
		return `C:\`
	}
	return "/"
}

func defaultConfig() *Config {
	return &Config{
		DiskPath:      autoDiskPath,
		SendHour:      -1,
		SendMinute:    -1,
		AssetsDir:     defaultAssetsDir(),
		IPEchoURL:     defaultIPEchoURL,
		ProbeTimeout:  10 * time.Second,
		SMTPTimeout:   30 * time.Second,
		RunTimeout:    2 * time.Minute,
		CheckInterval: time.Minute,
		Pi: PiConfig{
			LocalPort: 22,
			User:      defaultPiUser,
		},
	}
}

func defaultAssetsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "assets"
	}
	return filepath.Join(filepath.Dir(exe), "assets")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("reading config: %w", err)}
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	cfg := defaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Err: fmt.Errorf("parsing config: %w", err)}
	}

	if pw := os.Getenv(passwordEnv); pw != "" {
		cfg.SenderPassword = pw
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = autoDiskPath
	}
	if cfg.IPEchoURL == "" {
		cfg.IPEchoURL = defaultIPEchoURL
	}
	if cfg.Pi.User == "" {
		cfg.Pi.User = defaultPiUser
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		key, value string
	}{
		{"sender_mail", c.SenderMail},
		{"sender_password", c.SenderPassword},
		{"receiver_mail", c.ReceiverMail},
		{"smtp_server_address", c.SMTPServer},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigError{Key: r.key, Err: errors.New("required")}
		}
	}

	if _, err := mail.ParseAddress(c.SenderMail); err != nil {
		return &ConfigError{Key: "sender_mail", Err: err}
	}
	if _, err := mail.ParseAddress(c.ReceiverMail); err != nil {
		return &ConfigError{Key: "receiver_mail", Err: err}
	}

	if err := checkPort("smtp_server_port", c.SMTPPort, true); err != nil {
		return err
	}
	if c.SendHour < 0 || c.SendHour > 23 {
		return &ConfigError{Key: "send_hour", Err: fmt.Errorf("must be 0-23, got %d", c.SendHour)}
	}
	if c.SendMinute < 0 || c.SendMinute > 59 {
		return &ConfigError{Key: "send_minute", Err: fmt.Errorf("must be 0-59, got %d", c.SendMinute)}
	}

	if err := checkPort("pi.local_port", c.Pi.LocalPort, false); err != nil {
		return err
	}
	if err := checkPort("pi.external_port", c.Pi.ExternalPort, c.Pi.External); err != nil {
		return err
	}
	if err := checkPort("status.port", c.Status.Port, false); err != nil {
		return err
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"probe_timeout", c.ProbeTimeout},
		{"smtp_timeout", c.SMTPTimeout},
		{"run_timeout", c.RunTimeout},
		{"check_interval", c.CheckInterval},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return &ConfigError{Key: d.key, Err: fmt.Errorf("must be positive, got %s", d.d)}
		}
	}
	return nil
}

func checkPort(key string, port int, required bool) error {
	if port == 0 && !required {
		return nil
	}
	if port < 1 || port > 65535 {
		return &ConfigError{Key: key, Err: fmt.Errorf("must be 1-65535, got %d", port)}
	}
	return nil
}
