// Package config resolves the service configuration from defaults, an
// optional YAML file, a .env file, the process environment and command-line
// overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"netrasarthi-media/internal/cloudinary"
)

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 5000
	DefaultEnvironment = "development"
	DefaultEnvFile     = ".env"

	EventsDriverMemory = "memory"
	EventsDriverRedis  = "redis"
)

// DefaultAllowedOrigins lists the frontend deployments allowed to call the API
// when CORS_ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
	"https://netrasarthiv1.vercel.app",
}

// Config is the resolved service configuration. It is built once at startup
// and not mutated afterwards.
type Config struct {
	Cloudinary cloudinary.Config
	Server     ServerConfig
	CORS       CORSConfig
	Log        LogConfig
	Events     EventsConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string
	TLSCertFile string
	TLSKeyFile  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type EventsConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisStream   string
}

// Overrides carries command-line values. Zero values leave lower layers intact.
type Overrides struct {
	Host           string
	Port           int
	Environment    string
	AllowedOrigins string
	LogLevel       string
	LogFormat      string
	EventsDriver   string
	RedisAddr      string
	TLSCertFile    string
	TLSKeyFile     string
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. Empty falls back to CONFIG_FILE.
	ConfigFile string
	// EnvFile is a dotenv file; a missing file is ignored. Empty means ".env".
	EnvFile   string
	Overrides Overrides
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Defaults returns the configuration used before any source is applied.
func Defaults() Config {
	return Config{
		Cloudinary: cloudinary.Config{
			APIBase: cloudinary.DefaultAPIBase,
			Timeout: cloudinary.DefaultTimeout,
		},
		Server: ServerConfig{
			Host:        DefaultHost,
			Port:        DefaultPort,
			Environment: DefaultEnvironment,
		},
		CORS: CORSConfig{AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...)},
		Log:  LogConfig{Level: "info", Format: "json"},
		Events: EventsConfig{
			Driver: EventsDriverMemory,
		},
	}
}

// Load resolves and validates the configuration.
func Load(opts LoadOptions) (Config, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Defaults()

	configFile := firstNonEmpty(opts.ConfigFile, lookupValue(lookup, "CONFIG_FILE"))
	if configFile != "" {
		if err := applyFile(&cfg, configFile); err != nil {
			return Config{}, err
		}
	}

	dotenv, err := readEnvFile(firstNonEmpty(opts.EnvFile, DefaultEnvFile))
	if err != nil {
		return Config{}, err
	}
	env := layeredLookup(lookup, dotenv)

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	applyOverrides(&cfg, opts.Overrides)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if err := c.Cloudinary.Validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Server.Port)
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return errors.New("tls requires both a certificate and a key file")
	}
	for _, origin := range c.CORS.AllowedOrigins {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid cors origin %q", origin)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	switch c.Events.Driver {
	case EventsDriverMemory:
	case EventsDriverRedis:
		if c.Events.RedisAddr == "" {
			return errors.New("redis events driver requires EVENTS_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported events driver %q", c.Events.Driver)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// IsProduction reports whether the environment label names a production
// deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func applyEnv(cfg *Config, env func(string) string) error {
	if raw := env("CLOUDINARY_URL"); raw != "" {
		parsed, err := cloudinary.ParseURL(raw)
		if err != nil {
			return fmt.Errorf("parse CLOUDINARY_URL: %w", err)
		}
		cfg.Cloudinary.CloudName = parsed.CloudName
		cfg.Cloudinary.APIKey = parsed.APIKey
		cfg.Cloudinary.APISecret = parsed.APISecret
	}
	setString(&cfg.Cloudinary.CloudName, env("CLOUDINARY_CLOUD_NAME"))
	setString(&cfg.Cloudinary.APIKey, env("CLOUDINARY_API_KEY"))
	setString(&cfg.Cloudinary.APISecret, env("CLOUDINARY_API_SECRET"))
	setString(&cfg.Cloudinary.APIBase, env("CLOUDINARY_API_BASE"))
	if raw := env("CLOUDINARY_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse CLOUDINARY_TIMEOUT: %w", err)
		}
		cfg.Cloudinary.Timeout = timeout
	}

	setString(&cfg.Server.Host, env("HOST"))
	if raw := env("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	setString(&cfg.Server.Environment, firstNonEmpty(env("APP_ENV"), env("NODE_ENV")))
	setString(&cfg.Server.TLSCertFile, env("TLS_CERT_FILE"))
	setString(&cfg.Server.TLSKeyFile, env("TLS_KEY_FILE"))

	if origins := splitAndTrim(env("CORS_ALLOWED_ORIGINS")); origins != nil {
		cfg.CORS.AllowedOrigins = origins
	}

	setString(&cfg.Log.Level, env("LOG_LEVEL"))
	setString(&cfg.Log.Format, env("LOG_FORMAT"))

	setString(&cfg.Events.Driver, strings.ToLower(env("EVENTS_DRIVER")))
	setString(&cfg.Events.RedisAddr, env("EVENTS_REDIS_ADDR"))
	setString(&cfg.Events.RedisPassword, env("EVENTS_REDIS_PASSWORD"))
	setString(&cfg.Events.RedisStream, env("EVENTS_REDIS_STREAM"))
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	setString(&cfg.Server.Host, o.Host)
	if o.Port > 0 {
		cfg.Server.Port = o.Port
	}
	setString(&cfg.Server.Environment, o.Environment)
	if origins := splitAndTrim(o.AllowedOrigins); origins != nil {
		cfg.CORS.AllowedOrigins = origins
	}
	setString(&cfg.Log.Level, o.LogLevel)
	setString(&cfg.Log.Format, o.LogFormat)
	setString(&cfg.Events.Driver, strings.ToLower(o.EventsDriver))
	setString(&cfg.Events.RedisAddr, o.RedisAddr)
	setString(&cfg.Server.TLSCertFile, o.TLSCertFile)
	setString(&cfg.Server.TLSKeyFile, o.TLSKeyFile)
}

// readEnvFile parses a dotenv file without touching the process environment.
func readEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

// layeredLookup prefers the real environment over dotenv values.
func layeredLookup(lookup func(string) (string, bool), dotenv map[string]string) func(string) string {
	return func(key string) string {
		if value, ok := lookup(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(dotenv[key])
	}
}

func lookupValue(lookup func(string) (string, bool), key string) string {
	value, _ := lookup(key)
	return strings.TrimSpace(value)
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
