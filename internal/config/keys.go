package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// key is one config value addressed by its dotted path. set parses and
// validates the textual form before storing it.
type key struct {
	name   string
	secret bool
	get    func(*Config) any
	set    func(*Config, string) error
}

var keys = []key{
	text("data_dir", func(c *Config) *string { return &c.DataDir }, nonEmpty),
	text("log_level", func(c *Config) *string { return &c.LogLevel }, oneOf("debug", "info", "warn", "error")),

	text("api.base_url", func(c *Config) *string { return &c.API.BaseURL }, httpURL),
	secret(text("api.token", func(c *Config) *string { return &c.API.Token }, nil)),
	text("api.user_id", func(c *Config) *string { return &c.API.UserID }, nil),
	text("api.client_id", func(c *Config) *string { return &c.API.ClientID }, nil),
	number("api.timeout_seconds", func(c *Config) *int { return &c.API.TimeoutSeconds }, 1),
	number("api.stream_timeout_seconds", func(c *Config) *int { return &c.API.StreamTimeoutSeconds }, 1),

	flag("insights.use_connected_data", func(c *Config) *bool { return &c.Insights.UseConnectedData }),
	flag("insights.use_direct_data", func(c *Config) *bool { return &c.Insights.UseDirectData }),
	text("insights.integration_mode", func(c *Config) *string { return &c.Insights.IntegrationMode }, nonEmpty),
	number("insights.max_query_tokens", func(c *Config) *int { return &c.Insights.MaxQueryTokens }, 0),
	text("insights.tokenizer_model", func(c *Config) *string { return &c.Insights.TokenizerModel }, nonEmpty),

	number("status.cooldown_seconds", func(c *Config) *int { return &c.Status.CooldownSeconds }, 1),
	number("status.startup_window_seconds", func(c *Config) *int { return &c.Status.StartupWindowSeconds }, 0),
	text("status.schedule", func(c *Config) *string { return &c.Status.Schedule }, nil),

	text("store.backend", func(c *Config) *string { return &c.Store.Backend }, oneOf(StoreBolt, StoreFile, StoreMemory)),
}

func lookup(name string) (key, bool) {
	for _, k := range keys {
		if k.name == name {
			return k, true
		}
	}
	return key{}, false
}

// IsSecretKey reports whether the value of name is masked on output.
func IsSecretKey(name string) bool {
	k, ok := lookup(name)
	return ok && k.secret
}

// Keys returns every settable key in display order.
func Keys() []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.name
	}
	return out
}

func secret(k key) key {
	k.secret = true
	return k
}

func text(name string, field func(*Config) *string, check func(string) error) key {
	return key{
		name: name,
		get:  func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			v = strings.TrimSpace(v)
			if check != nil {
				if err := check(v); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			*field(c) = v
			return nil
		},
	}
}

func number(name string, field func(*Config) *int, min int) key {
	return key{
		name: name,
		get:  func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %q is not a whole number", name, v)
			}
			if n < min {
				return fmt.Errorf("%s: must be at least %d", name, min)
			}
			*field(c) = n
			return nil
		},
	}
}

func flag(name string, field func(*Config) *bool) key {
	return key{
		name: name,
		get:  func(c *Config) any { return *field(c) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %q is not true or false", name, v)
			}
			*field(c) = b
			return nil
		},
	}
}

func nonEmpty(v string) error {
	if v == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %s", v, strings.Join(allowed, ", "))
	}
}

func httpURL(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", v)
	}
	return nil
}

// maskSecret shows only the last 4 characters of s.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}
