package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

var (
	ErrDatabaseDSNMissing = errors.New("database DSN is not set")
	ErrJWTSecretMissing   = errors.New("JWT secret is not set")
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultMigrationsDir = "internal/db/migrations"
	defaultMailerAddress = "https://api.resend.com"
	defaultMailFrom      = "Guestmart <noreply@guestmart.local>"
	defaultAppURL        = "http://localhost:8080"

	defaultAutoApproveInterval = 5 * time.Minute
)

// Config параметры запуска. Переменные окружения имеют приоритет над флагами командной строки.
type Config struct {
	RunAddress          string        `env:"RUN_ADDRESS"`
	DatabaseDSN         string        `env:"DATABASE_URI"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`
	JWTSecret           string        `env:"JWT_SECRET"`
	CronSecret          string        `env:"CRON_SECRET"`
	MailerAddress       string        `env:"MAILER_ADDRESS"`
	MailerAPIKey        string        `env:"MAILER_API_KEY"`
	MailFrom            string        `env:"MAIL_FROM"`
	AppURL              string        `env:"APP_URL"`
	PricingFile         string        `env:"PRICING_FILE"`
	AutoApproveInterval time.Duration `env:"AUTO_APPROVE_INTERVAL"`
	LogLevel            string        `env:"LOG_LEVEL"`
}

// BindFlags регистрирует флаги командной строки. Значения по умолчанию задаются здесь же.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.RunAddress, "address", "a", defaultRunAddress, "Run address in format host:port")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", "", "Database DSN")
	fs.StringVarP(&c.MigrationsDir, "migrations", "m", defaultMigrationsDir, "Database migrations directory")
	fs.StringVar(&c.JWTSecret, "jwt-secret", "", "Secret used to sign session tokens")
	fs.StringVar(&c.CronSecret, "cron-secret", "", "Bearer secret for the cron endpoint, empty disables the check")
	fs.StringVar(&c.MailerAddress, "mailer-address", defaultMailerAddress, "Email provider API address")
	fs.StringVar(&c.MailerAPIKey, "mailer-api-key", "", "Email provider API key, empty logs emails instead of sending")
	fs.StringVar(&c.MailFrom, "mail-from", defaultMailFrom, "Sender address for outgoing emails")
	fs.StringVar(&c.AppURL, "app-url", defaultAppURL, "Public application URL used in emails")
	fs.StringVar(&c.PricingFile, "pricing", "", "Path to a TOML pricing policy file")
	fs.DurationVar(&c.AutoApproveInterval, "auto-approve-interval", defaultAutoApproveInterval,
		"Period of the auto-approve sweep, 0 disables the in-process sweeper")
	fs.StringVar(&c.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Load читает переменные окружения и накладывает их на значения флагов.
func Load(flagsConfig *Config) (*Config, error) {
	var envConfig Config
	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	conf := mergeConfig(&envConfig, flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, ErrDatabaseDSNMissing
	}
	return conf, nil
}

// ValidateServe проверяет параметры, без которых не может работать HTTP сервер.
func (c *Config) ValidateServe() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretMissing
	}
	return nil
}

// String скрывает секреты при выводе конфигурации в лог.
func (c Config) String() string {
	return fmt.Sprintf(
		"{RunAddress:%s MigrationsDir:%s MailerAddress:%s MailFrom:%s AppURL:%s PricingFile:%s "+
			"AutoApproveInterval:%s LogLevel:%s MailerEnabled:%t CronSecretSet:%t}",
		c.RunAddress, c.MigrationsDir, c.MailerAddress, c.MailFrom, c.AppURL, c.PricingFile,
		c.AutoApproveInterval, c.LogLevel, c.MailerAPIKey != "", c.CronSecret != "",
	)
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	interval := flagsConfig.AutoApproveInterval
	if envConfig.AutoApproveInterval != 0 {
		interval = envConfig.AutoApproveInterval
	}
	return &Config{
		RunAddress:          defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:         defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:       defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTSecret:           defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),
		CronSecret:          defaultIfBlank(envConfig.CronSecret, flagsConfig.CronSecret),
		MailerAddress:       defaultIfBlank(envConfig.MailerAddress, flagsConfig.MailerAddress),
		MailerAPIKey:        defaultIfBlank(envConfig.MailerAPIKey, flagsConfig.MailerAPIKey),
		MailFrom:            defaultIfBlank(envConfig.MailFrom, flagsConfig.MailFrom),
		AppURL:              defaultIfBlank(envConfig.AppURL, flagsConfig.AppURL),
		PricingFile:         defaultIfBlank(envConfig.PricingFile, flagsConfig.PricingFile),
		AutoApproveInterval: interval,
		LogLevel:            defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
	}
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
