package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel           string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort           string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	BoardSize          int           `yaml:"board-size" env:"BOARD_SIZE" env-default:"3"`
	SessionIdleTimeout time.Duration `yaml:"session-idle-timeout" env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	Redis              Redis         `yaml:"redis"`
	AI                 AI            `yaml:"ai"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// GameTTL is how long finished game records are kept.
	GameTTL time.Duration `yaml:"game-ttl" env:"REDIS_GAME_TTL" env-default:"168h"`
}

type AI struct {
	ThinkDelay        time.Duration `yaml:"think-delay" env:"AI_THINK_DELAY" env-default:"300ms"`
	SearchTimeout     time.Duration `yaml:"search-timeout" env:"AI_SEARCH_TIMEOUT" env-default:"2s"`
	DefaultDifficulty string        `yaml:"default-difficulty" env:"AI_DEFAULT_DIFFICULTY" env-default:"optimal"`
	Seed              uint64        `yaml:"seed" env:"AI_SEED" env-default:"0"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
