package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SESSION_TTL_SECONDS", "")

	cfg := Load()
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "inv")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("ADMIN_EMAILS", " Admin@School.edu , ,ops@school.edu")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ANALYTICS_CACHE_SECONDS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"admin@school.edu", "ops@school.edu"}, cfg.Admin.Emails)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 60*time.Second, cfg.Analytics.CacheTTL)
	assert.Contains(t, cfg.Database.DSN(), "dbname=inv")
}

func TestIsAdminEmail(t *testing.T) {
	a := AdminConfig{Emails: []string{"admin@school.edu"}}
	assert.True(t, a.IsAdminEmail(" ADMIN@school.edu"))
	assert.False(t, a.IsAdminEmail("student@school.edu"))
}
