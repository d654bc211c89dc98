// Package config provides configuration loading and validation for the application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultUsersAPIBaseURL   = "https://reqres.in/api"
	DefaultUsersAPITimeout   = 30 * time.Second
	DefaultUsersAPIUserAgent = "useradmin/0.1"

	DefaultPageSize = 3
	DefaultMaxViews = 64

	DefaultRedisPoolSize = 10

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute

	DefaultWSBufferSize   = 1024
	DefaultWSPingInterval = 30 * time.Second
	DefaultWSPongTimeout  = 60 * time.Second
	DefaultWSMailboxSize  = 16
)

// AppMode defines the application wiring mode.
type AppMode string

// Application wiring modes.
const (
	// AppModeReal talks to the configured users API.
	AppModeReal AppMode = "real"

	// AppModeMock serves a fixed fixture list in-process, for development and browser tests.
	AppModeMock AppMode = "mock"
)

// Notification bus types.
const (
	NotifyTypeInMemory = "inmemory"
	NotifyTypeRedis    = "redis"
)

// Config holds the complete application configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	UsersAPI  UsersAPIConfig  `yaml:"users_api"`
	Table     TableConfig     `yaml:"table"`
	Notify    NotifyConfig    `yaml:"notify"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Mode controls dependency wiring: "real" (default) or "mock".
	Mode AppMode `yaml:"mode" env:"APP_MODE"`

	// Name is the application name used in logs and metrics.
	Name string `yaml:"name" env:"APP_NAME"`
}

// IsMockMode returns true if the users API is replaced by fixtures.
func (c AppConfig) IsMockMode() bool {
	return c.Mode == AppModeMock
}

// ServerConfig holds HTTP server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Address returns the full server address (host:port).
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsersAPIConfig points at the remote user collection.
//
//nolint:golines // Struct tags require longer lines for readability
type UsersAPIConfig struct {
	BaseURL   string        `yaml:"base_url" env:"USERS_API_BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"USERS_API_TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"USERS_API_USER_AGENT"`
	APIKey    string        `yaml:"api_key" env:"USERS_API_KEY"`
	// PerPage is sent as per_page on list requests; 0 leaves the API default.
	PerPage int `yaml:"per_page" env:"USERS_API_PER_PAGE"`
}

// TableConfig holds presentation settings of the user table.
type TableConfig struct {
	PageSize int `yaml:"page_size" env:"TABLE_PAGE_SIZE"`
	MaxViews int `yaml:"max_views" env:"TABLE_MAX_VIEWS"`
}

// NotifyConfig selects the toast notification bus.
//
//nolint:golines // Struct tags require longer lines for readability
type NotifyConfig struct {
	Type          string `yaml:"type" env:"NOTIFY_TYPE"` // inmemory | redis
	ChannelPrefix string `yaml:"channel_prefix" env:"NOTIFY_CHANNEL_PREFIX"`
}

// RedisConfig holds Redis connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
}

// RateLimitConfig throttles the row operation endpoints per client address.
//
//nolint:golines // Struct tags require longer lines for readability
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
	Window   time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
}

// LogConfig holds logging configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | text
}

// WebSocketConfig holds WebSocket server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"WS_READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WS_WRITE_BUFFER_SIZE"`
	PingInterval    time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL"`
	PongTimeout     time.Duration `yaml:"pong_timeout" env:"WS_PONG_TIMEOUT"`
	MailboxSize     int           `yaml:"mailbox_size" env:"WS_MAILBOX_SIZE"`
}

// Configuration errors.
var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrInvalidDuration   = errors.New("invalid duration format")
	ErrInvalidLogLevel   = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat  = errors.New("invalid log format: must be json or text")
	ErrInvalidNotifyType = errors.New("invalid notify type: must be redis or inmemory")
	ErrInvalidAppMode    = errors.New("invalid app mode: must be real or mock")
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Mode: AppModeReal,
			Name: "useradmin",
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		UsersAPI: UsersAPIConfig{
			BaseURL:   DefaultUsersAPIBaseURL,
			Timeout:   DefaultUsersAPITimeout,
			UserAgent: DefaultUsersAPIUserAgent,
		},
		Table: TableConfig{
			PageSize: DefaultPageSize,
			MaxViews: DefaultMaxViews,
		},
		Notify: NotifyConfig{
			Type:          NotifyTypeInMemory,
			ChannelPrefix: "useradmin:",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: DefaultRedisPoolSize,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: DefaultRateLimitRequests,
			Window:   DefaultRateLimitWindow,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  DefaultWSBufferSize,
			WriteBufferSize: DefaultWSBufferSize,
			PingInterval:    DefaultWSPingInterval,
			PongTimeout:     DefaultWSPongTimeout,
			MailboxSize:     DefaultWSMailboxSize,
		},
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error

	errs = c.validateApp(errs)
	errs = c.validateServer(errs)
	errs = c.validateUsersAPI(errs)
	errs = c.validateTable(errs)
	errs = c.validateNotify(errs)
	errs = c.validateRateLimit(errs)
	errs = c.validateLog(errs)
	errs = c.validateWebSocket(errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}

	return nil
}

func (c *Config) validateApp(errs []error) []error {
	if c.App.Mode != "" && c.App.Mode != AppModeReal && c.App.Mode != AppModeMock {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidAppMode, c.App.Mode))
	}
	return errs
}

func (c *Config) validateServer(errs []error) []error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	return errs
}

// validateUsersAPI skips the base URL check in mock mode, where no request leaves the process.
func (c *Config) validateUsersAPI(errs []error) []error {
	if !c.App.IsMockMode() {
		if c.UsersAPI.BaseURL == "" {
			errs = append(errs, errors.New("users_api.base_url is required"))
		} else if u, err := url.Parse(c.UsersAPI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("users_api.base_url must be an absolute URL, got %q", c.UsersAPI.BaseURL))
		}
	}
	if c.UsersAPI.Timeout < 0 {
		errs = append(errs, errors.New("users_api.timeout must not be negative"))
	}
	if c.UsersAPI.PerPage < 0 {
		errs = append(errs, errors.New("users_api.per_page must not be negative"))
	}
	return errs
}

func (c *Config) validateTable(errs []error) []error {
	if c.Table.PageSize <= 0 {
		errs = append(errs, errors.New("table.page_size must be positive"))
	}
	if c.Table.MaxViews <= 0 {
		errs = append(errs, errors.New("table.max_views must be positive"))
	}
	return errs
}

func (c *Config) validateNotify(errs []error) []error {
	switch strings.ToLower(c.Notify.Type) {
	case NotifyTypeInMemory:
	case NotifyTypeRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis notify bus"))
		}
	default:
		errs = append(errs, ErrInvalidNotifyType)
	}
	return errs
}

func (c *Config) validateRateLimit(errs []error) []error {
	if !c.RateLimit.Enabled {
		return errs
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("rate_limit.requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	return errs
}

func (c *Config) validateLog(errs []error) []error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ErrInvalidLogFormat)
	}
	return errs
}

func (c *Config) validateWebSocket(errs []error) []error {
	if c.WebSocket.ReadBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.read_buffer_size must be positive"))
	}
	if c.WebSocket.WriteBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.write_buffer_size must be positive"))
	}
	if c.WebSocket.PingInterval <= 0 {
		errs = append(errs, errors.New("websocket.ping_interval must be positive"))
	}
	if c.WebSocket.PongTimeout <= c.WebSocket.PingInterval {
		errs = append(errs, errors.New("websocket.pong_timeout must be greater than ping_interval"))
	}
	if c.WebSocket.MailboxSize < 0 {
		errs = append(errs, errors.New("websocket.mailbox_size must not be negative"))
	}
	return errs
}

// Load loads configuration from the default config file and environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path.
// If path is empty, it tries to find the config file in standard locations.
func LoadFromPath(path string) (*Config, error) {
	loader := NewLoader()
	return loader.Load(path)
}

// Loader handles configuration loading from files and environment variables.
type Loader struct {
	configPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		configPaths: []string{
			"configs/config.yaml",
			"config.yaml",
			"/etc/useradmin/config.yaml",
		},
	}
}

// WithConfigPaths sets custom config paths to search.
func (l *Loader) WithConfigPaths(paths []string) *Loader {
	l.configPaths = paths
	return l
}

// Load loads configuration from file and environment variables.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range l.configPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	if configPath != "" {
		if err := l.loadFromFile(cfg, configPath); err != nil {
			// Only fatal when the path was asked for explicitly
			if path != "" || os.Getenv("CONFIG_PATH") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// loadEnvToStruct recursively loads environment variables into a struct.
func (l *Loader) loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := l.setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromEnv sets a struct field value from an environment variable string.
//
//nolint:exhaustive // We only support a subset of reflect.Kind for config values
func (l *Loader) setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %s", value)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// IsDevelopment returns true if the log level indicates a development environment.
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Log.Level) == "debug"
}
