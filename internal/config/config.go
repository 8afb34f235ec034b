package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultPath = "./config.yaml"

type Config struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	DebugAddr  string `yaml:"debug_addr" json:"debug_addr"`
	UploadDir  string `yaml:"upload_dir" json:"upload_dir"`

	// Completion: "declared" или "verified", см. uploadsvc.CompletionMode.
	Completion string `yaml:"completion" json:"completion"`
	Strict     bool   `yaml:"strict" json:"strict"`

	GCTTL      time.Duration `yaml:"gc_ttl" json:"gc_ttl"`
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval"`

	CORS CORSConfig `yaml:"cors" json:"cors"`

	SentryDSN       string        `yaml:"sentry_dsn" json:"-"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"` // секунды
}

// Default возвращает конфигурацию, с которой сервис работает без файла и переменных окружения.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		DebugAddr:  ":8090",
		UploadDir:  "uploads",
		Completion: "declared",
		Strict:     true,
		GCTTL:      24 * time.Hour,
		GCInterval: 30 * time.Minute,
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:4200"},
			AllowedMethods: []string{"POST"},
			AllowedHeaders: []string{"Content-Type", "X-File-Name", "X-File-Size", "X-Chunk-Index", "X-Total-Chunks"},
			MaxAge:         3600,
		},
		ShutdownTimeout: 15 * time.Second,
	}
}

// Load читает YAML-конфигурацию поверх значений по умолчанию, применяет ENV-переопределения
// и проверяет результат. Пустой path означает CONFIG_PATH или ./config.yaml; отсутствие файла
// по умолчанию ошибкой не считается.
func Load(path string) (*Config, error) {
	env := viper.New()
	env.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = env.GetString("config_path")
		explicit = path != ""
	}
	if !explicit {
		path = defaultPath
	}

	c := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(c, env); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv переносит в конфигурацию заданные переменные окружения (LISTEN_ADDR, UPLOAD_DIR, ...).
func applyEnv(c *Config, env *viper.Viper) error {
	strs := map[string]*string{
		"listen_addr": &c.ListenAddr,
		"debug_addr":  &c.DebugAddr,
		"upload_dir":  &c.UploadDir,
		"completion":  &c.Completion,
		"sentry_dsn":  &c.SentryDSN,
		"log_level":   &c.LogLevel,
	}
	for key, dst := range strs {
		if env.IsSet(key) {
			*dst = env.GetString(key)
		}
	}

	durations := map[string]*time.Duration{
		"gc_ttl":           &c.GCTTL,
		"gc_interval":      &c.GCInterval,
		"shutdown_timeout": &c.ShutdownTimeout,
	}
	for key, dst := range durations {
		if !env.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(env.GetString(key))
		if err != nil {
			return fmt.Errorf("env %s: %w", strings.ToUpper(key), err)
		}
		*dst = d
	}

	if env.IsSet("strict") {
		v, err := strconv.ParseBool(env.GetString("strict"))
		if err != nil {
			return fmt.Errorf("env STRICT: %w", err)
		}
		c.Strict = v
	}

	if env.IsSet("cors_allowed_origins") {
		c.CORS.AllowedOrigins = splitComma(env.GetString("cors_allowed_origins"))
	}

	return nil
}

// Validate проверяет значения, без которых сервис не стартует.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is empty"))
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		errs = append(errs, errors.New("upload_dir is empty"))
	}
	if c.GCTTL < 0 || c.GCInterval < 0 {
		errs = append(errs, errors.New("gc_ttl and gc_interval must not be negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.CORS.MaxAge < 0 {
		errs = append(errs, errors.New("cors.max_age must not be negative"))
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
