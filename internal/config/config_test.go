package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func credentials() map[string]string {
	return map[string]string{
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "key",
		"CLOUDINARY_API_SECRET": "secret",
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(credentials())})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:5000" {
		t.Fatalf("expected default addr 0.0.0.0:5000, got %q", cfg.Addr())
	}
	if cfg.Server.Environment != DefaultEnvironment {
		t.Fatalf("expected development environment, got %q", cfg.Server.Environment)
	}
	if len(cfg.CORS.AllowedOrigins) != len(DefaultAllowedOrigins) {
		t.Fatalf("expected default origins, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Cloudinary.Timeout != 60*time.Second {
		t.Fatalf("expected 60s upstream timeout, got %v", cfg.Cloudinary.Timeout)
	}
	if cfg.Events.Driver != EventsDriverMemory {
		t.Fatalf("expected memory events driver, got %q", cfg.Events.Driver)
	}
	if cfg.IsProduction() {
		t.Fatal("expected development config not to report production")
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	env := credentials()
	delete(env, "CLOUDINARY_API_SECRET")
	_, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err == nil || !strings.Contains(err.Error(), "api secret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestLoadCloudinaryURL(t *testing.T) {
	env := map[string]string{
		"CLOUDINARY_URL":     "cloudinary://k:s@cloud",
		"CLOUDINARY_API_KEY": "override",
	}
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cloudinary.CloudName != "cloud" || cfg.Cloudinary.APISecret != "s" {
		t.Fatalf("expected credentials from url, got %+v", cfg.Cloudinary)
	}
	if cfg.Cloudinary.APIKey != "override" {
		t.Fatalf("expected explicit api key to win, got %q", cfg.Cloudinary.APIKey)
	}
}

func TestLoadPrecedence(t *testing.T) {
	configFile := writeFile(t, "config.yaml", `
cloudinary:
  cloud_name: from-file
  api_key: file-key
  api_secret: file-secret
  timeout: 5s
server:
  port: 6000
  environment: staging
cors:
  allowed_origins:
    - https://file.example
log:
  level: debug
`)
	envFile := writeFile(t, ".env", "PORT=7000\nCLOUDINARY_CLOUD_NAME=from-dotenv\nLOG_LEVEL=warn\n")

	env := map[string]string{"CLOUDINARY_CLOUD_NAME": "from-env"}
	cfg, err := Load(LoadOptions{
		ConfigFile: configFile,
		EnvFile:    envFile,
		LookupEnv:  envMap(env),
		Overrides:  Overrides{LogLevel: "error"},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Cloudinary.CloudName != "from-env" {
		t.Fatalf("expected real env to beat dotenv and file, got %q", cfg.Cloudinary.CloudName)
	}
	if cfg.Cloudinary.APIKey != "file-key" {
		t.Fatalf("expected file value when nothing overrides it, got %q", cfg.Cloudinary.APIKey)
	}
	if cfg.Cloudinary.Timeout != 5*time.Second {
		t.Fatalf("expected file timeout, got %v", cfg.Cloudinary.Timeout)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("expected dotenv port to beat file, got %d", cfg.Server.Port)
	}
	if cfg.Server.Environment != "staging" {
		t.Fatalf("expected file environment, got %q", cfg.Server.Environment)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("expected flag override to win, got %q", cfg.Log.Level)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://file.example" {
		t.Fatalf("expected file origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	configFile := writeFile(t, "config.yaml", "server:\n  host: 127.0.0.1\n")
	env := credentials()
	env["CONFIG_FILE"] = configFile
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("expected host from CONFIG_FILE, got %q", cfg.Server.Host)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	configFile := writeFile(t, "config.yaml", "server:\n  hots: 127.0.0.1\n")
	_, err := Load(LoadOptions{ConfigFile: configFile, EnvFile: missingEnvFile(t), LookupEnv: envMap(credentials())})
	if err == nil {
		t.Fatal("expected unknown yaml key to be rejected")
	}
}

func TestLoadEnvironmentLabel(t *testing.T) {
	env := credentials()
	env["NODE_ENV"] = "production"
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected NODE_ENV to set the environment, got %q", cfg.Server.Environment)
	}

	env["APP_ENV"] = "preview"
	cfg, err = Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Environment != "preview" {
		t.Fatalf("expected APP_ENV to win over NODE_ENV, got %q", cfg.Server.Environment)
	}
}

func TestLoadParsesOrigins(t *testing.T) {
	env := credentials()
	env["CORS_ALLOWED_ORIGINS"] = " https://a.example , ,http://b.example:8080"
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := strings.Join(cfg.CORS.AllowedOrigins, ","); got != "https://a.example,http://b.example:8080" {
		t.Fatalf("unexpected origins %q", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := map[string]map[string]string{
		"port":          {"PORT": "http"},
		"port range":    {"PORT": "70000"},
		"timeout":       {"CLOUDINARY_TIMEOUT": "soon"},
		"origin":        {"CORS_ALLOWED_ORIGINS": "localhost"},
		"events driver": {"EVENTS_DRIVER": "kafka"},
		"redis addr":    {"EVENTS_DRIVER": "redis"},
		"tls pair":      {"TLS_CERT_FILE": "cert.pem"},
		"log format":    {"LOG_FORMAT": "xml"},
		"cloudinary":    {"CLOUDINARY_URL": "https://k:s@cloud"},
		"api base":      {"CLOUDINARY_API_BASE": "api.cloudinary.com"},
	}
	for name, extra := range testCases {
		env := credentials()
		for key, value := range extra {
			env[key] = value
		}
		if _, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)}); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadRedisEvents(t *testing.T) {
	env := credentials()
	env["EVENTS_DRIVER"] = "Redis"
	env["EVENTS_REDIS_ADDR"] = "localhost:6379"
	env["EVENTS_REDIS_STREAM"] = "custom"
	cfg, err := Load(LoadOptions{EnvFile: missingEnvFile(t), LookupEnv: envMap(env)})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Events.Driver != EventsDriverRedis || cfg.Events.RedisStream != "custom" {
		t.Fatalf("unexpected events config %+v", cfg.Events)
	}
}

func TestOverridesBeatEnvironment(t *testing.T) {
	env := credentials()
	env["PORT"] = "8080"
	env["HOST"] = "10.0.0.1"
	cfg, err := Load(LoadOptions{
		EnvFile:   missingEnvFile(t),
		LookupEnv: envMap(env),
		Overrides: Overrides{Port: 9090, AllowedOrigins: "https://flag.example"},
	})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr() != "10.0.0.1:9090" {
		t.Fatalf("expected flag port with env host, got %q", cfg.Addr())
	}
	if cfg.CORS.AllowedOrigins[0] != "https://flag.example" {
		t.Fatalf("expected flag origins, got %v", cfg.CORS.AllowedOrigins)
	}
}
