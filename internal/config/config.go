package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress        = "localhost:8080"
	defaultMigrationsDir     = "internal/db/migrations"
	defaultProposeMaxRetries = 5
	defaultProposeRetryBase  = 10 * time.Millisecond
	defaultShutdownTimeout   = 5 * time.Second
)

// Config переменные окружения имеют приоритет над флагами. Нулевое значение переменной окружения
// считается не заданным.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	LogLevel      string `env:"LOG_LEVEL"`
	// ProposeMaxRetries кол-во повторов проведения транзакции при конфликте конкурентных записей.
	ProposeMaxRetries uint64        `env:"PROPOSE_MAX_RETRIES"`
	ProposeRetryBase  time.Duration `env:"PROPOSE_RETRY_BASE"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

// LoadConfig читает конфиг из .env файла (если он есть), окружения и флагов командной строки.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], ".env")
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

// Load собирает конфиг из аргументов args и окружения. Файлы envFiles дополняют окружение, не перезаписывая
// уже заданные переменные. Отсутствующие файлы пропускаются.
func Load(args []string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if loadErr := godotenv.Load(f); loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %s", f, loadErr.Error())
		}
	}

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if flagsErr := loadFlags(&flagsConfig, args); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %s", flagsErr.Error())
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	return conf, nil
}

func loadFlags(flagConfig *Config, args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)

	fs.StringVar(&flagConfig.RunAddress, "a", defaultRunAddress, "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", defaultMigrationsDir, "Database migrations directory")
	fs.StringVar(&flagConfig.LogLevel, "l", "", "Log level (debug, info, warn, error)")
	fs.Uint64Var(&flagConfig.ProposeMaxRetries, "r", defaultProposeMaxRetries,
		"Max retries of a transaction on concurrent write conflict")
	fs.DurationVar(&flagConfig.ProposeRetryBase, "b", defaultProposeRetryBase, "Base delay between retries")
	fs.DurationVar(&flagConfig.ShutdownTimeout, "s", defaultShutdownTimeout, "Graceful shutdown timeout")

	return fs.Parse(args) //nolint:wrapcheck
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:        defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:       defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:     defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		LogLevel:          defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
		ProposeMaxRetries: defaultIfBlank(envConfig.ProposeMaxRetries, flagsConfig.ProposeMaxRetries),
		ProposeRetryBase:  defaultIfBlank(envConfig.ProposeRetryBase, flagsConfig.ProposeRetryBase),
		ShutdownTimeout:   defaultIfBlank(envConfig.ShutdownTimeout, flagsConfig.ShutdownTimeout),
	}
}

func defaultIfBlank[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
