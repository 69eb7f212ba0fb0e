package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"asesor/internal/domain"
	"asesor/internal/relevance"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultAPIURL = "https://intelligent-vitality-production.up.railway.app"
)

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives the chat UI logs; empty discards them.
	File string `yaml:"file"`
}

// BackendConfig holds the connection details of the remote answer engine.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// ServerConfig configures the offline HTTP backend.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

// KnowledgeConfig points at an external corpus; empty uses the built-in one.
type KnowledgeConfig struct {
	Dir string `yaml:"dir"`
}

// LocalConfig tunes the offline answer engine.
type LocalConfig struct {
	SimulatedLatencyMs int `yaml:"simulated_latency_ms"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Mode        string             `yaml:"mode"`
	Environment string             `yaml:"environment"`
	Company     string             `yaml:"company"`
	Profile     domain.UserContext `yaml:"profile"`
	Log         LogConfig          `yaml:"log"`
	Backend     BackendConfig      `yaml:"backend"`
	Server      ServerConfig       `yaml:"server"`
	Knowledge   KnowledgeConfig    `yaml:"knowledge"`
	Scoring     relevance.Weights  `yaml:"scoring"`
	Local       LocalConfig        `yaml:"local"`
}

// IsProduction reports whether the configured environment is production.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// Validate checks the values defaults cannot repair.
func (c *AppConfig) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeLocal, ModeRemote)
	}
	if c.Backend.TimeoutSecs < 0 || c.Backend.MaxRetries < 0 {
		return errors.New("backend timeout and retries must not be negative")
	}
	if c.Local.SimulatedLatencyMs < 0 {
		return errors.New("simulated latency must not be negative")
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// LoadDefault loads the first existing file among ./config.yaml and
// ~/.config/asesor/config.yaml. When neither exists the defaults are written
// to the user path so there is a file to edit next time.
func LoadDefault() (*AppConfig, string, error) {
	userPath, err := userConfigPath()
	if err != nil {
		return nil, "", err
	}
	for _, p := range []string{"config.yaml", userPath} {
		if _, statErr := os.Stat(p); statErr == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}

	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", fmt.Errorf("write default config: %w", err)
	}
	applyEnv(cfg)
	return cfg, userPath, cfg.Validate()
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "asesor", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Mode:        ModeLocal,
		Environment: EnvDevelopment,
		Log:         LogConfig{Level: "info", Format: "console"},
		Backend:     BackendConfig{BaseURL: DefaultAPIURL, TimeoutSecs: 60, MaxRetries: 2},
		Server: ServerConfig{
			Addr:               ":8000",
			RequestTimeoutSecs: 30,
			AllowedOrigins:     []string{"http://localhost:5173"},
		},
		Scoring: relevance.DefaultWeights(),
	}
}

// applyConfigDefaults fills values a partial file left empty.
func applyConfigDefaults(cfg *AppConfig) {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = ModeLocal
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultAPIURL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = 60
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 30
	}
	if cfg.Scoring == (relevance.Weights{}) {
		cfg.Scoring = relevance.DefaultWeights()
	}
}

// applyEnv lets ASESOR_* variables (typically from .env) override the file.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("ASESOR_MODE"); v != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("ASESOR_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("ASESOR_API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("ASESOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASESOR_COMPANY"); v != "" {
		cfg.Company = v
	}
}
