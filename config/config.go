package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name     string `mapstructure:"NAME"`
		Port     string `mapstructure:"PORT"`
		LogLevel string `mapstructure:"LOG_LEVEL"`
	}

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		}
		Redis struct {
			Url string `mapstructure:"URL"`
		}
		Mongo struct {
			Url      string `mapstructure:"URL"`
			Database string `mapstructure:"DATABASE"`
		}
	}

	QUEUE struct {
		Name            string        `mapstructure:"NAME"`
		Concurrency     int           `mapstructure:"CONCURRENCY"`
		RateMax         int           `mapstructure:"RATE_MAX"`
		RateDuration    time.Duration `mapstructure:"RATE_DURATION"`
		PollInterval    time.Duration `mapstructure:"POLL_INTERVAL"`
		CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`
		CleanupGrace    time.Duration `mapstructure:"CLEANUP_GRACE"`
	}

	MAILTRAP struct {
		SMTPHost string `mapstructure:"SMTP_HOST"`
		SMTPPort int    `mapstructure:"SMTP_PORT"`
		Username string `mapstructure:"USERNAME"`
		Password string `mapstructure:"PASSWORD"`
		From     string `mapstructure:"FROM"`
		TO       string `mapstructure:"TO"`
	}

	WEBHOOK struct {
		Url     string        `mapstructure:"URL"`
		Secret  string        `mapstructure:"SECRET"`
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	}

	REPORTS struct {
		TTL time.Duration `mapstructure:"TTL"`
	}
}

var Conf *AppConfig

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP.NAME", "warehouse-jobs")
	v.SetDefault("APP.PORT", ":8080")
	v.SetDefault("APP.LOG_LEVEL", "info")

	v.SetDefault("DATABASE.POSTGRES.URL", "")
	v.SetDefault("DATABASE.REDIS.URL", "")
	v.SetDefault("DATABASE.MONGO.URL", "")
	v.SetDefault("DATABASE.MONGO.DATABASE", "warehouse")

	v.SetDefault("QUEUE.NAME", "warehouse-jobs")
	v.SetDefault("QUEUE.CONCURRENCY", 5)
	v.SetDefault("QUEUE.RATE_MAX", 10)
	v.SetDefault("QUEUE.RATE_DURATION", time.Second)
	v.SetDefault("QUEUE.POLL_INTERVAL", 500*time.Millisecond)
	v.SetDefault("QUEUE.CLEANUP_INTERVAL", time.Hour)
	v.SetDefault("QUEUE.CLEANUP_GRACE", 24*time.Hour)

	v.SetDefault("MAILTRAP.SMTP_HOST", "")
	v.SetDefault("MAILTRAP.SMTP_PORT", 2525)
	v.SetDefault("MAILTRAP.USERNAME", "")
	v.SetDefault("MAILTRAP.PASSWORD", "")
	v.SetDefault("MAILTRAP.FROM", "")
	v.SetDefault("MAILTRAP.TO", "")

	v.SetDefault("WEBHOOK.URL", "")
	v.SetDefault("WEBHOOK.SECRET", "")
	v.SetDefault("WEBHOOK.TIMEOUT", 10*time.Second)

	v.SetDefault("REPORTS.TTL", 24*time.Hour)
}

// LoadConfig reads application.yaml when present and lets WHJOBS_* variables
// override it. A missing file is not an error.
func LoadConfig() error {
	cfg, err := Load(viper.New(), ".")
	if err != nil {
		return err
	}

	Conf = cfg
	log.Info().Msg("configuration loaded...")
	return nil
}

func Load(v *viper.Viper, paths ...string) (*AppConfig, error) {
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("WHJOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("no application.yaml found, using env and defaults")
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}
