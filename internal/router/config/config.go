package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"` // postgres или memory
	AppEnv        string `mapstructure:"APP_ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	SweepInterval   time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepOnRead     bool          `mapstructure:"SWEEP_ON_READ"`

	ScoreWeightTechnical  string `mapstructure:"SCORE_WEIGHT_TECHNICAL"`
	ScoreWeightFinancial  string `mapstructure:"SCORE_WEIGHT_FINANCIAL"`
	BulkDeleteConcurrency int    `mapstructure:"BULK_DELETE_CONCURRENCY"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":          "0.0.0.0:8080",
	"MIGRATION_URL":           "file://migrations",
	"STORAGE_DRIVER":          "postgres",
	"APP_ENV":                 "production",
	"LOG_LEVEL":               "info",
	"REQUEST_TIMEOUT":         "5s",
	"SHUTDOWN_TIMEOUT":        "10s",
	"SWEEP_INTERVAL":          "1m",
	"SWEEP_ON_READ":           false,
	"SCORE_WEIGHT_TECHNICAL":  "0.6",
	"SCORE_WEIGHT_FINANCIAL":  "0.4",
	"BULK_DELETE_CONCURRENCY": 4,
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path.
// Переменные окружения имеют приоритет, отсутствие файла не является ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{"POSTGRES_CONN", "POSTGRES_USERNAME", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DATABASE"} {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		err = nil
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if cfg.PostgresConn == "" && cfg.PostgresHost != "" {
		cfg.PostgresConn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPass, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	}
	return cfg, nil
}
