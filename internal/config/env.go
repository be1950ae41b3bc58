package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDIACENTER_"

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	EnvPrefix + "API_URL":         "mediacenter.api_url",
	EnvPrefix + "TOKEN":           "mediacenter.token",
	EnvPrefix + "ENTITY_ID":       "mediacenter.entity_id",
	EnvPrefix + "LANGUAGE":        "mediacenter.language",
	EnvPrefix + "PAGE_SIZE":       "mediacenter.page_size",
	EnvPrefix + "SIZE_MODE":       "mediacenter.size_mode",
	EnvPrefix + "TIMEOUT_SECONDS": "mediacenter.timeout_seconds",
	EnvPrefix + "MAX_RETRIES":     "mediacenter.max_retries",
	EnvPrefix + "PROXY_MODE":      "proxy.mode",
	EnvPrefix + "PROXY_HOST":      "proxy.host",
	EnvPrefix + "PROXY_PORT":      "proxy.port",
	EnvPrefix + "PROXY_USER":      "proxy.user",
	EnvPrefix + "PROXY_PASSWORD":  "proxy.password",
	EnvPrefix + "NO_PROXY":        "proxy.no_proxy",
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped and variables already set are not overwritten. With no
// arguments ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

// ApplyEnv overrides settings from MEDIACENTER_* variables. A nil lookup
// reads the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for env, key := range envKeys {
		v, ok := lookup(env)
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

// Resolve loads .env, the config file and the environment, in increasing
// order of precedence. Flags are applied by the caller afterwards.
func Resolve(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}
