// Package config reads POS_* settings from the environment and an optional
// .env file.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/simple-pos/store"
)

const Prefix = "pos"

type Config struct {
	Backend         string `envconfig:"BACKEND" default:"json"`
	DataDir         string `envconfig:"DATA_DIR" default:"./data"`
	CapacityBytes   int64  `envconfig:"CAPACITY_BYTES" default:"5242880"`
	ListenAddr      string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string `envconfig:"LOG_FORMAT" default:"text"`
	CascadeCheckout bool   `envconfig:"CASCADE_CHECKOUT" default:"false"`

	// AllowedOrigins lists browser origins permitted by CORS; empty disables it.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// Load reads envFiles (".env" when none are given) into the environment
// without overriding variables already set, then processes POS_* keys.
// Missing env files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, errors.Wrap(err, "process environment")
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Backend {
	case "json", "sqlite", "memory":
	default:
		return errors.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.CapacityBytes <= 0 {
		return errors.Errorf("config: capacity must be positive, got %d", c.CapacityBytes)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Logger builds a logger with the configured level and format.
func (c Config) Logger() *log.Logger {
	l := log.New()
	if c.LogFormat == "json" {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// OpenStore opens the configured backend wrapped with the capacity
// ceiling.
func (c Config) OpenStore() (*store.LimitedStore, error) {
	s, err := store.New(c.Backend, c.DataDir)
	if err != nil {
		return nil, err
	}
	return store.Limited(s, c.CapacityBytes), nil
}
