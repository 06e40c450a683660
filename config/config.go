// Package config loads the settings used by the keyedcache command.
package config

import (
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/krisalay/keyed-cache/bookstore"
)

// EnvConfig names the environment variable holding a config file path.
const EnvConfig = "KEYEDCACHE_CONFIG"

// Config is the on-disk configuration.
type Config struct {
	Shards   int              `yaml:"shards"`
	LogLevel string           `yaml:"log_level"`
	Catalog  []bookstore.Book `yaml:"catalog"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Shards:   16,
		LogLevel: "info",
		Catalog: []bookstore.Book{
			{ID: 1, Title: "The Go Programming Language"},
			{ID: 2, Title: "Concurrency in Go"},
			{ID: 3, Title: "Designing Data-Intensive Applications"},
		},
	}
}

// Load reads path over the defaults. An empty path falls back to
// KEYEDCACHE_CONFIG, and then to Default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		log.Debug("no config file, using defaults")
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to read config", map[string]interface{}{
			"path": path,
		})
	}

	// Fields missing from the file keep their defaults; a catalog in the
	// file replaces the default catalog.
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Config{}, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse config", map[string]interface{}{
			"path": path,
		})
	}
	if file.Shards != 0 {
		cfg.Shards = file.Shards
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.Catalog != nil {
		cfg.Catalog = file.Catalog
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WithContext(err, "path", path)
	}

	log.WithField("path", path).Debug("loaded config")
	return cfg, nil
}

// Validate checks shard count, log level and catalog ids.
func (c Config) Validate() error {
	if c.Shards < 1 {
		return errors.Newf(errors.CodeInvalidConfig, "shards must be at least 1, got %d", c.Shards)
	}
	if _, err := log.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return errors.Wrapf(err, errors.CodeInvalidConfig, "invalid log_level %q", c.LogLevel)
	}

	seen := make(map[int64]struct{}, len(c.Catalog))
	for _, b := range c.Catalog {
		if err := bookstore.ValidateID(b.ID); err != nil {
			return errors.Wrap(err, errors.CodeInvalidConfig, "invalid catalog entry")
		}
		if _, ok := seen[b.ID]; ok {
			return errors.Newf(errors.CodeInvalidConfig, "duplicate catalog id %d", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}
