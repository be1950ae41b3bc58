package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/nexx/mediacenter/internal/constants"
)

// Config is the client configuration.
//
// Config file location: see DefaultPath.
//
// INI format:
//
//	[mediacenter]
//	api_url = https://media.example.com
//	token = <bearer token>
//	entity_id = <entity the listings are scoped to>
//	language = en
//	page_size = 10
//	size_mode = formatted
//	timeout_seconds = 30
//	max_retries = 0
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy = localhost,127.0.0.1
type Config struct {
	APIURL         string
	Token          string
	EntityID       string
	Language       string
	PageSize       int
	SizeMode       string
	TimeoutSeconds int

	// MaxRetries applies to PUT and DELETE only. Reads are always
	// single-shot; the user retries by reloading.
	MaxRetries int

	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string
}

// Size modes for the list's size column.
const (
	SizeModeFormatted = "formatted"
	SizeModeRaw       = "raw"
)

// Proxy modes.
const (
	ProxyNone   = "no-proxy"
	ProxySystem = "system"
	ProxyBasic  = "basic"
	ProxyNTLM   = "ntlm"
)

// Validation errors
var (
	ErrMissingAPIURL    = errors.New("api_url is required")
	ErrMissingToken     = errors.New("token is required")
	ErrInvalidPageSize  = fmt.Errorf("page_size must be one of %v", constants.AllowedPageSizes)
	ErrInvalidSizeMode  = errors.New("size_mode must be formatted or raw")
	ErrInvalidLanguage  = errors.New("language must be en or fa")
	ErrInvalidProxyMode = errors.New("proxy mode must be no-proxy, system, basic or ntlm")
	ErrInvalidTimeout   = errors.New("timeout_seconds must be positive")
	ErrInvalidRetries   = errors.New("max_retries must be between 0 and 10")
	ErrUnknownKey       = errors.New("unknown config key")
)

// New returns a config with default values.
func New() *Config {
	return &Config{
		Language:       "en",
		PageSize:       constants.DefaultPageSize,
		SizeMode:       SizeModeFormatted,
		TimeoutSeconds: int(constants.DefaultRequestTimeout / time.Second),
		ProxyMode:      ProxyNone,
		ProxyPort:      8080,
	}
}

// Load reads the INI file at path. A missing file yields defaults and no
// error; an empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	mc := iniFile.Section("mediacenter")
	cfg.APIURL = mc.Key("api_url").MustString(cfg.APIURL)
	cfg.Token = mc.Key("token").String()
	cfg.EntityID = mc.Key("entity_id").String()
	cfg.Language = mc.Key("language").MustString(cfg.Language)
	cfg.PageSize = mc.Key("page_size").MustInt(cfg.PageSize)
	cfg.SizeMode = mc.Key("size_mode").MustString(cfg.SizeMode)
	cfg.TimeoutSeconds = mc.Key("timeout_seconds").MustInt(cfg.TimeoutSeconds)
	cfg.MaxRetries = mc.Key("max_retries").MustInt(cfg.MaxRetries)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.ProxyPassword = proxy.Key("password").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()

	return cfg, nil
}

// Save writes cfg to path atomically with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	mc, err := iniFile.NewSection("mediacenter")
	if err != nil {
		return fmt.Errorf("failed to create mediacenter section: %w", err)
	}
	mc.Key("api_url").SetValue(cfg.APIURL)
	mc.Key("token").SetValue(cfg.Token)
	mc.Key("entity_id").SetValue(cfg.EntityID)
	mc.Key("language").SetValue(cfg.Language)
	mc.Key("page_size").SetValue(strconv.Itoa(cfg.PageSize))
	mc.Key("size_mode").SetValue(cfg.SizeMode)
	mc.Key("timeout_seconds").SetValue(strconv.Itoa(cfg.TimeoutSeconds))
	mc.Key("max_retries").SetValue(strconv.Itoa(cfg.MaxRetries))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(strconv.Itoa(cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	// The proxy password is never persisted; it is prompted for or read from the environment.
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if err := c.ValidateForConnection(); err != nil {
		return err
	}
	if !constants.IsAllowedPageSize(c.PageSize) {
		return ErrInvalidPageSize
	}
	if c.SizeMode != SizeModeFormatted && c.SizeMode != SizeModeRaw {
		return ErrInvalidSizeMode
	}
	if c.Language != "en" && c.Language != "fa" {
		return ErrInvalidLanguage
	}
	if c.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return ErrInvalidRetries
	}
	switch strings.ToLower(c.ProxyMode) {
	case ProxyNone, ProxySystem, ProxyBasic, ProxyNTLM, "":
	default:
		return ErrInvalidProxyMode
	}
	return nil
}

// ValidateForConnection checks only what is needed to reach the API.
func (c *Config) ValidateForConnection() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return ErrMissingAPIURL
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	return nil
}

// Timeout is the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return constants.DefaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// field binds a dotted key to a Config field.
type field struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func intSetter(dst func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*dst(c) = n
		return nil
	}
}

func stringField(dst func(c *Config) *string, secret bool) field {
	return field{
		get:    func(c *Config) string { return *dst(c) },
		set:    func(c *Config, v string) error { *dst(c) = strings.TrimSpace(v); return nil },
		secret: secret,
	}
}

func intField(dst func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*dst(c)) },
		set: intSetter(dst),
	}
}

var fields = map[string]field{
	"mediacenter.api_url":         stringField(func(c *Config) *string { return &c.APIURL }, false),
	"mediacenter.token":           stringField(func(c *Config) *string { return &c.Token }, true),
	"mediacenter.entity_id":       stringField(func(c *Config) *string { return &c.EntityID }, false),
	"mediacenter.language":        stringField(func(c *Config) *string { return &c.Language }, false),
	"mediacenter.page_size":       intField(func(c *Config) *int { return &c.PageSize }),
	"mediacenter.size_mode":       stringField(func(c *Config) *string { return &c.SizeMode }, false),
	"mediacenter.timeout_seconds": intField(func(c *Config) *int { return &c.TimeoutSeconds }),
	"mediacenter.max_retries":     intField(func(c *Config) *int { return &c.MaxRetries }),
	"proxy.mode":                  stringField(func(c *Config) *string { return &c.ProxyMode }, false),
	"proxy.host":                  stringField(func(c *Config) *string { return &c.ProxyHost }, false),
	"proxy.port":                  intField(func(c *Config) *int { return &c.ProxyPort }),
	"proxy.user":                  stringField(func(c *Config) *string { return &c.ProxyUser }, false),
	"proxy.password":              stringField(func(c *Config) *string { return &c.ProxyPassword }, true),
	"proxy.no_proxy":              stringField(func(c *Config) *string { return &c.NoProxy }, false),
}

func lookupField(key string) (string, field, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !strings.Contains(key, ".") {
		key = "mediacenter." + key
	}
	f, ok := fields[key]
	if !ok {
		return "", field{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return key, f, nil
}

// Keys lists the settable keys in "section.key" form.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a value by "section.key"; a bare key means the mediacenter section.
func (c *Config) Set(key, value string) error {
	name, f, err := lookupField(key)
	if err != nil {
		return err
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Get returns a value by key. Secrets are masked unless reveal is set.
func (c *Config) Get(key string, reveal bool) (string, error) {
	_, f, err := lookupField(key)
	if err != nil {
		return "", err
	}
	v := f.get(c)
	if f.secret && !reveal {
		return mask(v), nil
	}
	return v, nil
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
