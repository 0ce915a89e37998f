// Package config loads runtime configuration from an optional yaml
// file plus RIDEFOLD_-prefixed environment variables, with env taking
// precedence. Double underscores in env names map to config dots
// (RIDEFOLD_SINK__TYPE -> sink.type).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level runtime configuration.
type Config struct {
	Partitions int           `koanf:"partitions"`
	LogLevel   string        `koanf:"log_level"`
	Shuffle    ShuffleConfig `koanf:"shuffle"`
	Sink       SinkConfig    `koanf:"sink"`
}

type ShuffleConfig struct {
	Transport string     `koanf:"transport"` // local | amqp
	AMQP      AMQPConfig `koanf:"amqp"`
}

type AMQPConfig struct {
	URL   string `koanf:"url"`
	Queue string `koanf:"queue"`
}

type SinkConfig struct {
	Type  string      `koanf:"type"` // stdout | mysql
	MySQL MySQLConfig `koanf:"mysql"`
}

type MySQLConfig struct {
	DSN       string `koanf:"dsn"`
	Table     string `koanf:"table"`
	Truncate  bool   `koanf:"truncate"`
	BatchSize int    `koanf:"batch_size"`
}

func (c *Config) Validate() error {
	if c.Partitions < 1 {
		return fmt.Errorf("partitions must be >= 1, got %d", c.Partitions)
	}
	switch c.Shuffle.Transport {
	case "local":
	case "amqp":
		if strings.TrimSpace(c.Shuffle.AMQP.URL) == "" {
			return fmt.Errorf("shuffle.amqp.url is required for the amqp transport")
		}
		if strings.TrimSpace(c.Shuffle.AMQP.Queue) == "" {
			return fmt.Errorf("shuffle.amqp.queue is required for the amqp transport")
		}
	default:
		return fmt.Errorf("unsupported shuffle.transport %q (local or amqp)", c.Shuffle.Transport)
	}
	switch c.Sink.Type {
	case "stdout":
	case "mysql":
		if strings.TrimSpace(c.Sink.MySQL.DSN) == "" {
			return fmt.Errorf("sink.mysql.dsn is required for the mysql sink")
		}
	default:
		return fmt.Errorf("unsupported sink.type %q (stdout or mysql)", c.Sink.Type)
	}
	return nil
}

// Load parses config from file + env and validates it. An empty path
// means defaults + env only.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"partitions":            4,
		"log_level":             "info",
		"shuffle.transport":     "local",
		"shuffle.amqp.url":      "",
		"shuffle.amqp.queue":    "ridefold",
		"sink.type":             "stdout",
		"sink.mysql.dsn":        "",
		"sink.mysql.table":      "",
		"sink.mysql.truncate":   false,
		"sink.mysql.batch_size": 2000,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("RIDEFOLD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RIDEFOLD_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
