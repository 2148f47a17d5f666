package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Quiz     QuizConfig     `yaml:"quiz"`
	Voice    VoiceConfig    `yaml:"voice"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// RedisConfig enables the Redis-backed stores when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// PostgresConfig enables the Postgres catalog and results when URL is set.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

type QuizConfig struct {
	TTL string `yaml:"ttl"`
}

type VoiceConfig struct {
	RestartDelay      string `yaml:"restart_delay"`
	ErrorRestartDelay string `yaml:"error_restart_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML config from path. An optional .env in the working
// directory is loaded first and ${VAR} references in the file are expanded.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Redis.TTL == "" {
		c.Redis.TTL = "10m"
	}
	if c.Quiz.TTL == "" {
		c.Quiz.TTL = "10m"
	}
	if c.Voice.RestartDelay == "" {
		c.Voice.RestartDelay = "100ms"
	}
	if c.Voice.ErrorRestartDelay == "" {
		c.Voice.ErrorRestartDelay = "1s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
