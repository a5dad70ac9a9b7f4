// Package config loads the optional .oascli.yaml file and the OASCLI_* environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = ".oascli.yaml"

const envPrefix = "OASCLI_"

type Config struct {
	Start         string        `yaml:"start" validate:"required"`
	ContentTypes  []string      `yaml:"contentTypes" validate:"required,min=1,dive,required,contains=/"`
	ReservedWords []string      `yaml:"reservedWords" validate:"dive,required"`
	LogLevel      string        `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat     string        `yaml:"logFormat" validate:"oneof=text json"`
	MaxWorkers    int           `yaml:"maxWorkers" validate:"gte=0"`
	BaseURL       string        `yaml:"baseURL" validate:"omitempty,url"`
	Token         string        `yaml:"token"`
	Auth          string        `yaml:"auth" validate:"oneof=bearer basic none"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Start:        "main",
		ContentTypes: []string{"application/json"},
		LogLevel:     "warn",
		LogFormat:    "text",
		Auth:         "bearer",
		Timeout:      30 * time.Second,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q check (got %v)", yamlName(fe.StructNamespace()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func yamlName(ns string) string {
	ns = strings.TrimPrefix(ns, "Config.")
	if ns == "" {
		return ns
	}
	return strings.ToLower(ns[:1]) + ns[1:]
}

// Load reads path on top of the defaults, then applies the environment. A missing
// file is an error only when explicit is set.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from OASCLI_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			var out []string
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			*dst = out
		}
	}
	str("START", &c.Start)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("BASE_URL", &c.BaseURL)
	str("TOKEN", &c.Token)
	str("AUTH", &c.Auth)
	list("CONTENT_TYPES", &c.ContentTypes)
	list("RESERVED_WORDS", &c.ReservedWords)

	if v, ok := lookup(envPrefix + "MAX_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_WORKERS: %w", envPrefix, err)
		}
		c.MaxWorkers = n
	}
	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	return nil
}
