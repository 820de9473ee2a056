package cloudinary

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdkconfig "github.com/cloudinary/cloudinary-go/v2/config"
)

const (
	// DefaultAPIBase is the public Cloudinary API host.
	DefaultAPIBase = "https://api.cloudinary.com"
	// DefaultTimeout matches the request timeout of the official SDKs.
	DefaultTimeout = 60 * time.Second
)

// Config holds the credentials and transport settings for a Client.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	APIBase   string
	Timeout   time.Duration
}

// ParseURL decodes a CLOUDINARY_URL of the form
// cloudinary://<api_key>:<api_secret>@<cloud_name>.
func ParseURL(raw string) (Config, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Config{}, errors.New("cloudinary url is empty")
	}
	if !strings.HasPrefix(trimmed, "cloudinary://") {
		return Config{}, errors.New("cloudinary url must use the cloudinary:// scheme")
	}
	parsed, err := sdkconfig.NewFromURL(trimmed)
	if err != nil {
		return Config{}, fmt.Errorf("parse cloudinary url: %w", err)
	}
	return Config{
		CloudName: parsed.Cloud.CloudName,
		APIKey:    parsed.Cloud.APIKey,
		APISecret: parsed.Cloud.APISecret,
	}, nil
}

// Validate reports the first missing credential.
func (cfg Config) Validate() error {
	switch {
	case strings.TrimSpace(cfg.CloudName) == "":
		return errors.New("cloudinary cloud name is required")
	case strings.TrimSpace(cfg.APIKey) == "":
		return errors.New("cloudinary api key is required")
	case strings.TrimSpace(cfg.APISecret) == "":
		return errors.New("cloudinary api secret is required")
	}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		parsed, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parse cloudinary api base: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("cloudinary api base must include scheme and host")
		}
	}
	return nil
}

func (cfg Config) withDefaults() Config {
	cfg.CloudName = strings.TrimSpace(cfg.CloudName)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

// sdkConfiguration translates cfg into the configuration the Cloudinary SDK
// signs and routes requests with. cfg must already carry its defaults.
func (cfg Config) sdkConfiguration() (*sdkconfig.Configuration, error) {
	conf, err := sdkconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("build cloudinary configuration: %w", err)
	}
	conf.API.UploadPrefix = cfg.APIBase
	seconds := int64(cfg.Timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	conf.API.Timeout = seconds
	return conf, nil
}
