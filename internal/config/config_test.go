package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	c := &Config{}
	c.Database.Host = "localhost"
	c.Database.Username = "stockwatch"
	c.Database.DBName = "stockwatch"
	c.SetDefaults()
	return c
}

func TestSetDefaults(t *testing.T) {
	c := validConfig()

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "debug", c.Server.Mode)
	assert.Equal(t, 3306, c.Database.Port)
	assert.Equal(t, 6379, c.Redis.Port)
	assert.Equal(t, 256, c.Feed.BufferSize)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, "stockwatch", c.Tracing.ServiceName)
	assert.Equal(t, 10, c.Watch.Thresholds.LowStock)
	assert.Equal(t, 0, c.Watch.Thresholds.OutOfStock)
	assert.Equal(t, 1000, c.Watch.Thresholds.Overstock)
	assert.Equal(t, 5*time.Second, c.Watch.CheckTimeout)
	assert.Equal(t, 50, c.Watch.RecentUpdates)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	c := validConfig()
	c.Server.Port = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Database.Host = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Database.Username = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Database.DBName = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Watch.Thresholds.LowStock = 1
	c.Watch.Thresholds.OutOfStock = 5
	assert.Error(t, c.Validate())
}

func TestServerConfig_GetAddr(t *testing.T) {
	s := &ServerConfig{Host: "127.0.0.1", Port: 9090}
	assert.Equal(t, "127.0.0.1:9090", s.GetAddr())

	s = &ServerConfig{}
	assert.Equal(t, "0.0.0.0:8080", s.GetAddr())
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.local",
		Port:     3306,
		Username: "app",
		Password: "secret",
		DBName:   "stockwatch",
	}
	assert.Equal(t,
		"app:secret@tcp(db.local:3306)/stockwatch?charset=utf8mb4&parseTime=True&loc=Local",
		d.GetDSN())
}
