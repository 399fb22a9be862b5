package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	ServerURL string    `yaml:"server-url" env:"SERVER_URL" env-default:"http://localhost:8080"`
	User      User      `yaml:"user"`
	Reconnect Reconnect `yaml:"reconnect"`
	History   History   `yaml:"history"`
}

// User is the identity the external login flow produced; this client only
// reads it.
type User struct {
	ID    int64  `yaml:"id" env:"USER_ID"`
	Name  string `yaml:"name" env:"USER_NAME"`
	Token string `yaml:"token" env:"AUTH_TOKEN"`
}

type Reconnect struct {
	MaxAttempts int           `yaml:"max-attempts" env-default:"5"`
	Delay       time.Duration `yaml:"delay" env-default:"5s"`
}

type History struct {
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}
