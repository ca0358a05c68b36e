package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, ":8080", cfg.HTTP.Addr)

	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "jobcenter", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 10, cfg.Database.MaxConns)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 30, cfg.Redis.StatusTTL)
	assert.Equal(t, "jobcenter:notifications", cfg.Redis.Stream)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.False(t, cfg.Maintenance.Enabled)
	assert.Equal(t, "http://localhost:9090", cfg.Maintenance.BaseURL)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "jobcenter-andon", cfg.MQTT.ClientID)
	assert.Equal(t, "factory/andon", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("HTTP_ADDR", ":9000")
	os.Setenv("DB_ENABLED", "false")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("REDIS_STATUS_TTL", "5")
	os.Setenv("MAINTENANCE_ENABLED", "true")
	os.Setenv("MAINTENANCE_BASE_URL", "http://maint.local")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("MQTT_QOS", "2")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "text")

	cfg := Load()
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-user", cfg.Database.User)
	assert.Equal(t, "test-db", cfg.Database.Database)

	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Redis.StatusTTL)

	assert.True(t, cfg.Maintenance.Enabled)
	assert.Equal(t, "http://maint.local", cfg.Maintenance.BaseURL)

	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// 清理环境变量
	os.Clearenv()
}

func TestLoad_BadIntFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5432, cfg.Database.Port)

	os.Clearenv()
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		User:     "jc",
		Password: "secret",
		Database: "jobcenter",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db.local port=5433 user=jc password=secret dbname=jobcenter sslmode=disable", cfg.GetDSN())
}
