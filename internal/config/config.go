package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	FaceAPI FaceAPIConfig `yaml:"face_api"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Verify  VerifyConfig  `yaml:"verify"`
	Web     WebConfig     `yaml:"web"`
	Log     LogConfig     `yaml:"log"`
}

type FaceAPIConfig struct {
	URL   string `yaml:"url"`   // face embedding server base URL
	Model string `yaml:"model"` // model name for reference only
}

type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	UserAgent      string  `yaml:"user_agent"`
}

// Timeout returns the per-request timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type VerifyConfig struct {
	Concurrency   int    `yaml:"concurrency"`
	SheetDetailed string `yaml:"sheet_detailed"`
	SheetSummary  string `yaml:"sheet_summary"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for positive floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma separated list, trimming blanks.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// Defaults returns the embedded defaults without environment overrides.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

// Load returns the embedded defaults overridden by environment variables.
func Load() *Config {
	cfg := Defaults()

	cfg.FaceAPI.URL = envString("FACE_API_URL", cfg.FaceAPI.URL)
	cfg.FaceAPI.Model = envString("FACE_API_MODEL", cfg.FaceAPI.Model)

	cfg.Fetch.TimeoutSeconds = envInt("FETCH_TIMEOUT_SECONDS", cfg.Fetch.TimeoutSeconds)
	cfg.Fetch.MaxRetries = envInt("FETCH_MAX_RETRIES", cfg.Fetch.MaxRetries)
	cfg.Fetch.RatePerSecond = envFloat("FETCH_RATE_PER_SECOND", cfg.Fetch.RatePerSecond)
	cfg.Fetch.UserAgent = envString("FETCH_USER_AGENT", cfg.Fetch.UserAgent)

	cfg.Verify.Concurrency = envInt("VERIFY_CONCURRENCY", cfg.Verify.Concurrency)

	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString("LOG_FORMAT", cfg.Log.Format)

	return &cfg
}

// InitLogger builds the global zap logger from cfg.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
