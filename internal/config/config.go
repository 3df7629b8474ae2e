package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	API      struct {
		BaseURL              string `json:"base_url"`
		Token                string `json:"token"`
		UserID               string `json:"user_id"`
		ClientID             string `json:"client_id"`
		TimeoutSeconds       int    `json:"timeout_seconds"`
		StreamTimeoutSeconds int    `json:"stream_timeout_seconds"`
	} `json:"api"`
	Insights struct {
		UseConnectedData bool   `json:"use_connected_data"`
		UseDirectData    bool   `json:"use_direct_data"`
		IntegrationMode  string `json:"integration_mode"`
		MaxQueryTokens   int    `json:"max_query_tokens"`
		TokenizerModel   string `json:"tokenizer_model"`
	} `json:"insights"`
	Status struct {
		CooldownSeconds      int    `json:"cooldown_seconds"`
		StartupWindowSeconds int    `json:"startup_window_seconds"`
		Schedule             string `json:"schedule"`
	} `json:"status"`
	Store struct {
		Backend string `json:"backend"`
	} `json:"store"`
}

// Store backends.
const (
	StoreBolt   = "bolt"
	StoreFile   = "file"
	StoreMemory = "memory"
)

func defaults() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".finsight"),
		LogLevel: "info",
	}
	cfg.API.BaseURL = "http://localhost:3000/api"
	cfg.API.TimeoutSeconds = 30
	cfg.API.StreamTimeoutSeconds = 120
	cfg.Insights.UseConnectedData = true
	cfg.Insights.IntegrationMode = "standard"
	cfg.Insights.MaxQueryTokens = 2000
	cfg.Insights.TokenizerModel = "gpt-4"
	cfg.Status.CooldownSeconds = 5
	cfg.Status.StartupWindowSeconds = 15
	cfg.Status.Schedule = "@every 1m"
	cfg.Store.Backend = StoreBolt
	return cfg
}

func Load(path string) (*Config, error) {
	cfg, err := readFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: write defaults
		cfg = defaults()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	// Override from env (highest precedence)
	if token := os.Getenv("FINSIGHT_API_TOKEN"); token != "" {
		cfg.API.Token = token
	}
	if baseURL := os.Getenv("FINSIGHT_BASE_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if userID := os.Getenv("FINSIGHT_USER_ID"); userID != "" {
		cfg.API.UserID = userID
	}

	return cfg, nil
}

// Timeout bounds unary API calls.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// StreamTimeout bounds a whole insight stream.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.API.StreamTimeoutSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Status.CooldownSeconds) * time.Second
}

func (c *Config) StartupWindow() time.Duration {
	return time.Duration(c.Status.StartupWindowSeconds) * time.Second
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Value is one key of a listed config.
type Value struct {
	Key   string
	Value any
}

// ListValues returns every key of cfg in display order. Secrets are
// masked when mask is set.
func ListValues(cfg *Config, mask bool) []Value {
	out := make([]Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, Value{Key: k.name, Value: value(cfg, k, mask)})
	}
	return out
}

// GetValue returns the value of one dotted key of cfg.
func GetValue(cfg *Config, name string, mask bool) (any, error) {
	k, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", name)
	}
	return value(cfg, k, mask), nil
}

func value(cfg *Config, k key, mask bool) any {
	v := k.get(cfg)
	if mask && k.secret {
		if s, ok := v.(string); ok {
			return maskSecret(s)
		}
	}
	return v
}

// Check validates a whole config before it is written.
type Check func(*Config) error

// SetValue parses value into one dotted key of the existing config file at
// path and writes the file back. Environment overrides are not persisted.
// The file is left untouched when the value or any check is rejected.
func SetValue(path, name, value string, checks ...Check) error {
	k, ok := lookup(name)
	if !ok {
		return fmt.Errorf("unknown config key: %s", name)
	}
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return Save(path, cfg)
}

// Validate runs every key's parser over its current value.
func (c *Config) Validate() error {
	for _, k := range keys {
		if err := k.set(c, fmt.Sprint(k.get(c))); err != nil {
			return err
		}
	}
	return nil
}

// readFile loads defaults overlaid with the file at path, without env
// overrides. The file must exist.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
