package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 从环境变量读取
type Config struct {
	Env       string
	Database  DatabaseConfig
	Redis     RedisConfig
	HTTP      HTTPConfig
	WebAuthn  WebAuthnConfig
	Session   SessionConfig
	Admin     AdminConfig
	Telemetry TelemetryConfig
	Kafka     KafkaConfig
	Cron      CronConfig
	Analytics AnalyticsConfig
	SMTP      SMTPConfig
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type HTTPConfig struct {
	Port      string
	WebOrigin string
}

type WebAuthnConfig struct {
	RPID        string
	RPOrigins   []string
	DisplayName string
}

type SessionConfig struct {
	TTL    time.Duration // WebAuthn ceremony state
	AppTTL time.Duration // 登录会话
}

type AdminConfig struct {
	Emails         []string
	BootstrapEmail string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CronConfig struct {
	DigestSchedule string
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

// SMTPConfig 为空 Host 时邀请邮件只写日志
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string // 为空时回退 Username
	AppName  string
}

// LoadEnv loads .env if present. A missing file is fine, env vars can be set by other means.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load reads configuration from the environment, falling back to development defaults.
func Load() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "development"),
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         getEnv("DB_NAME", "school_inventory"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Port:      getEnv("PORT", "3001"),
			WebOrigin: getEnv("WEB_ORIGIN", "http://localhost:5173"),
		},
		WebAuthn: WebAuthnConfig{
			RPID:        getEnv("RP_ID", "localhost"),
			RPOrigins:   splitCSV(getEnv("RP_ORIGINS", "http://localhost:5173"), false),
			DisplayName: getEnv("RP_DISPLAY_NAME", "School Inventory"),
		},
		Session: SessionConfig{
			TTL:    time.Duration(getInt("SESSION_TTL_SECONDS", 600)) * time.Second,
			AppTTL: time.Duration(getInt("APP_SESSION_TTL_HOURS", 24)) * time.Hour,
		},
		Admin: AdminConfig{
			Emails:         splitCSV(os.Getenv("ADMIN_EMAILS"), true), // 例如: "admin@ex.com,ops@ex.com"
			BootstrapEmail: strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "school-inventory"),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS"), false),
			Topic:   getEnv("KAFKA_TOPIC", "inventory-events"),
		},
		Cron: CronConfig{
			DigestSchedule: getEnv("CRON_DIGEST_SCHEDULE", "@every 1h"),
		},
		Analytics: AnalyticsConfig{
			CacheTTL: time.Duration(getInt("ANALYTICS_CACHE_SECONDS", 60)) * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			AppName:  getEnv("APP_NAME", "School Inventory"),
		},
	}
}

// DSN returns the Postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *AdminConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.Emails {
		if a == email {
			return true
		}
	}
	return false
}

func (c *Config) Production() bool { return c.Env == "production" }

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(csv string, lower bool) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		t := strings.TrimSpace(s)
		if t == "" {
			continue
		}
		if lower {
			t = strings.ToLower(t)
		}
		out = append(out, t)
	}
	return out
}
