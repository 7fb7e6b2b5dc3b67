package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Server     ServerConfig
	Backend    BackendConfig
	Handoff    HandoffConfig
	Speech     SpeechConfig
	Translator TranslatorConfig
	OpenAI     OpenAIConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicOrigin is the scheme://host under which uploaded images are
	// reachable from the internet. Empty means "use the request origin";
	// set it whenever the service is exposed publicly.
	PublicOrigin string
	// TrustProxy honours X-Forwarded-Proto when deriving the request origin
	TrustProxy   bool
	CookieSecure bool
	// UploadsDir and StaticDir serve assets from disk. When empty the
	// requests are proxied to the backend.
	UploadsDir string
	StaticDir  string
}

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type HandoffConfig struct {
	Backend        string // memory or valkey
	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	TTL            time.Duration
}

type SpeechConfig struct {
	Concurrency int
	AutoNarrate bool
}

type TranslatorConfig struct {
	Provider string // backend or openai
}

type OpenAIConfig struct {
	Provider       string
	APIKey         string
	APIEndpoint    string
	Model          string
	DeploymentName string
	APIVersion     string
}

type LogConfig struct {
	Level string
}

var defaults = map[string]any{
	"SERVER_PORT":          "8000",
	"SERVER_HOST":          "0.0.0.0",
	"SERVER_READ_TIMEOUT":  "30s",
	"SERVER_WRITE_TIMEOUT": "120s",
	"PUBLIC_ORIGIN":        "",
	"COOKIE_SECURE":        false,
	"TRUST_PROXY_HEADERS":  false,
	"UPLOADS_DIR":          "",
	"STATIC_DIR":           "",
	"BACKEND_URL":          "http://localhost:5000",
	"BACKEND_TIMEOUT":      "60s",
	"HANDOFF_BACKEND":      "memory",
	"VALKEY_INIT_ADDRESS":  "localhost:6379",
	"VALKEY_PASSWORD":      "",
	"VALKEY_TLS":           false,
	"HANDOFF_TTL":          "24h",
	"SPEECH_CONCURRENCY":   1,
	"AUTO_NARRATE":         true,
	"TRANSLATOR":           "backend",
	"OPENAI_PROVIDER":      "openai",
	"OPENAI_API_KEY":       "",
	"OPENAI_ENDPOINT":      "https://api.openai.com/v1",
	"OPENAI_MODEL":         "gpt-4o-mini",
	"OPENAI_DEPLOYMENT":    "gpt-4o",
	"OPENAI_API_VERSION":   "2023-05-15",
	"LOG_LEVEL":            "info",
}

// LoadConfig reads configuration from an optional .env file, an optional
// config file named by CONFIG_FILE and the environment, in increasing order
// of precedence.
func LoadConfig() (*Config, error) {
	if err := gotenv.Load(); err != nil {
		slog.Debug("no .env file found, using OS environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully")
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			PublicOrigin: strings.TrimRight(v.GetString("PUBLIC_ORIGIN"), "/"),
			TrustProxy:   v.GetBool("TRUST_PROXY_HEADERS"),
			CookieSecure: v.GetBool("COOKIE_SECURE"),
			UploadsDir:   v.GetString("UPLOADS_DIR"),
			StaticDir:    v.GetString("STATIC_DIR"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			Timeout: v.GetDuration("BACKEND_TIMEOUT"),
		},
		Handoff: HandoffConfig{
			Backend:        strings.ToLower(v.GetString("HANDOFF_BACKEND")),
			ValkeyAddress:  v.GetString("VALKEY_INIT_ADDRESS"),
			ValkeyPassword: v.GetString("VALKEY_PASSWORD"),
			ValkeyTLS:      v.GetBool("VALKEY_TLS"),
			TTL:            v.GetDuration("HANDOFF_TTL"),
		},
		Speech: SpeechConfig{
			Concurrency: v.GetInt("SPEECH_CONCURRENCY"),
			AutoNarrate: v.GetBool("AUTO_NARRATE"),
		},
		Translator: TranslatorConfig{
			Provider: strings.ToLower(v.GetString("TRANSLATOR")),
		},
		OpenAI: OpenAIConfig{
			Provider:       v.GetString("OPENAI_PROVIDER"),
			APIKey:         v.GetString("OPENAI_API_KEY"),
			APIEndpoint:    v.GetString("OPENAI_ENDPOINT"),
			Model:          v.GetString("OPENAI_MODEL"),
			DeploymentName: v.GetString("OPENAI_DEPLOYMENT"),
			APIVersion:     v.GetString("OPENAI_API_VERSION"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("BACKEND_URL must not be empty")
	}
	switch c.Handoff.Backend {
	case "memory", "valkey":
	default:
		return fmt.Errorf("unknown HANDOFF_BACKEND %q", c.Handoff.Backend)
	}
	switch c.Translator.Provider {
	case "backend":
	case "openai":
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required when TRANSLATOR=openai")
		}
	default:
		return fmt.Errorf("unknown TRANSLATOR %q", c.Translator.Provider)
	}
	if c.Speech.Concurrency < 1 {
		c.Speech.Concurrency = 1
	}
	return nil
}
