package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"netrasarthi-media/internal/cloudinary"
)

// fileConfig mirrors Config in the YAML layout accepted by --config.
type fileConfig struct {
	Cloudinary struct {
		URL       string `yaml:"url"`
		CloudName string `yaml:"cloud_name"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		APIBase   string `yaml:"api_base"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"cloudinary"`
	Server struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Environment string `yaml:"environment"`
		TLSCertFile string `yaml:"tls_cert_file"`
		TLSKeyFile  string `yaml:"tls_key_file"`
	} `yaml:"server"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Events struct {
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			Stream   string `yaml:"stream"`
		} `yaml:"redis"`
	} `yaml:"events"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	if raw := strings.TrimSpace(file.Cloudinary.URL); raw != "" {
		parsed, err := cloudinary.ParseURL(raw)
		if err != nil {
			return fmt.Errorf("config file cloudinary.url: %w", err)
		}
		cfg.Cloudinary.CloudName = parsed.CloudName
		cfg.Cloudinary.APIKey = parsed.APIKey
		cfg.Cloudinary.APISecret = parsed.APISecret
	}
	setString(&cfg.Cloudinary.CloudName, file.Cloudinary.CloudName)
	setString(&cfg.Cloudinary.APIKey, file.Cloudinary.APIKey)
	setString(&cfg.Cloudinary.APISecret, file.Cloudinary.APISecret)
	setString(&cfg.Cloudinary.APIBase, file.Cloudinary.APIBase)
	if raw := strings.TrimSpace(file.Cloudinary.Timeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config file cloudinary.timeout: %w", err)
		}
		cfg.Cloudinary.Timeout = timeout
	}

	setString(&cfg.Server.Host, file.Server.Host)
	if file.Server.Port != 0 {
		cfg.Server.Port = file.Server.Port
	}
	setString(&cfg.Server.Environment, file.Server.Environment)
	setString(&cfg.Server.TLSCertFile, file.Server.TLSCertFile)
	setString(&cfg.Server.TLSKeyFile, file.Server.TLSKeyFile)

	if origins := splitAndTrim(strings.Join(file.CORS.AllowedOrigins, ",")); origins != nil {
		cfg.CORS.AllowedOrigins = origins
	}

	setString(&cfg.Log.Level, file.Log.Level)
	setString(&cfg.Log.Format, file.Log.Format)

	setString(&cfg.Events.Driver, strings.ToLower(file.Events.Driver))
	setString(&cfg.Events.RedisAddr, file.Events.Redis.Addr)
	setString(&cfg.Events.RedisPassword, file.Events.Redis.Password)
	setString(&cfg.Events.RedisStream, file.Events.Redis.Stream)
	return nil
}
