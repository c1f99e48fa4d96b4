package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendTarantool = "tarantool"
)

type Config struct {
	MattermostURL  string
	BotToken       string
	HTTPTimeout    time.Duration
	HTTPAddr       string
	StorageBackend string
	AdminAddress   string
	AddressPrefix  string
	LogLevel       string
}

type TarantoolConfig struct {
	Address  string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	Retries  int
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type AMQPConfig struct {
	URL     string
	Queue   string
	Retries int
}

// LoadEnvFile reads .env if present. Variables already set in the environment win.
func LoadEnvFile() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() Config {
	return Config{
		MattermostURL:  os.Getenv("MATTERMOST_URL"),
		BotToken:       os.Getenv("BOT_TOKEN"),
		HTTPTimeout:    getDuration("HTTP_TIMEOUT", 10*time.Second),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		StorageBackend: getString("STORAGE_BACKEND", BackendMemory),
		AdminAddress:   os.Getenv("ADMIN_ADDRESS"),
		AddressPrefix:  os.Getenv("ADDRESS_PREFIX"),
		LogLevel:       getString("LOG_LEVEL", "info"),
	}
}

func TarantoolConfigLoad() TarantoolConfig {
	return TarantoolConfig{
		Address:  getString("TARANTOOL_ADDRESS", "localhost:3301"),
		User:     getString("TARANTOOL_USER", "guest"),
		Password: os.Getenv("TARANTOOL_PASSWORD"),
		Database: getString("TARANTOOL_SPACE", "contract_state"),
		Timeout:  getDuration("TARANTOOL_TIMEOUT", 5*time.Second),
		Retries:  getInt("TARANTOOL_RETRIES", 5),
	}
}

func RedisConfigLoad() RedisConfig {
	return RedisConfig{
		Address:  getString("REDIS_URL", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getInt("REDIS_DB", 0),
		Prefix:   getString("REDIS_PREFIX", "polling_contract:"),
	}
}

func AMQPConfigLoad() AMQPConfig {
	return AMQPConfig{
		URL:     os.Getenv("RABBITMQ_URL"),
		Queue:   getString("RABBITMQ_QUEUE", "poll_events"),
		Retries: getInt("RABBITMQ_RETRIES", 5),
	}
}

// Validate reports every invalid setting, not just the first.
func (c Config) Validate() error {
	var result *multierror.Error

	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendTarantool:
	default:
		result = multierror.Append(result, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", c.StorageBackend))
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if c.MattermostURL != "" && c.BotToken == "" {
		result = multierror.Append(result, errors.New("BOT_TOKEN: required when MATTERMOST_URL is set"))
	}

	if c.MattermostURL == "" && c.HTTPAddr == "" {
		result = multierror.Append(result, errors.New("nothing to serve: set MATTERMOST_URL or HTTP_ADDR"))
	}

	if c.HTTPTimeout <= 0 {
		result = multierror.Append(result, errors.New("HTTP_TIMEOUT: must be positive"))
	}

	return result.ErrorOrNil()
}

func (c TarantoolConfig) Validate() error {
	var result *multierror.Error
	if c.Address == "" {
		result = multierror.Append(result, errors.New("TARANTOOL_ADDRESS: required"))
	}
	if c.Database == "" {
		result = multierror.Append(result, errors.New("TARANTOOL_SPACE: required"))
	}
	if c.Retries < 1 {
		result = multierror.Append(result, errors.New("TARANTOOL_RETRIES: must be at least 1"))
	}
	return result.ErrorOrNil()
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
