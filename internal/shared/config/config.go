package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	MaxRetries int
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Broker             string
	GroupID            string
	OutboxPollInterval time.Duration
}

type JWTConfig struct {
	Secret string
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	MaxAttempts int
}

type PayrollConfig struct {
	BatchConcurrency int
	LockTTL          time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load before
// this if a .env file should be honoured.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_RETRIES", 5)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("KAFKA_GROUP_ID", "go-payroll-events")
	v.SetDefault("OUTBOX_POLL_INTERVAL", 3*time.Second)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_MAX_ATTEMPTS", 3)
	v.SetDefault("PAYROLL_BATCH_CONCURRENCY", 1)
	v.SetDefault("PAYROLL_LOCK_TTL", 30*time.Second)

	cfg := &Config{
		Port: v.GetString("PORT"),
		Database: DatabaseConfig{
			Host:       v.GetString("DB_HOST"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			Port:       v.GetString("DB_PORT"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			MaxRetries: v.GetInt("DB_MAX_RETRIES"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Broker:             v.GetString("KAFKA_BROKER"),
			GroupID:            v.GetString("KAFKA_GROUP_ID"),
			OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:        v.GetString("SMTP_HOST"),
			Port:        v.GetInt("SMTP_PORT"),
			Username:    v.GetString("SMTP_USERNAME"),
			Password:    v.GetString("SMTP_PASSWORD"),
			From:        v.GetString("SMTP_FROM"),
			MaxAttempts: v.GetInt("MAIL_MAX_ATTEMPTS"),
		},
		Payroll: PayrollConfig{
			BatchConcurrency: v.GetInt("PAYROLL_BATCH_CONCURRENCY"),
			LockTTL:          v.GetDuration("PAYROLL_LOCK_TTL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Payroll.BatchConcurrency < 1 {
		return fmt.Errorf("PAYROLL_BATCH_CONCURRENCY must be >= 1, got %d", c.Payroll.BatchConcurrency)
	}
	if c.Payroll.LockTTL <= 0 {
		return fmt.Errorf("PAYROLL_LOCK_TTL must be positive")
	}
	if c.SMTP.MaxAttempts < 1 {
		return fmt.Errorf("MAIL_MAX_ATTEMPTS must be >= 1, got %d", c.SMTP.MaxAttempts)
	}
	return nil
}
