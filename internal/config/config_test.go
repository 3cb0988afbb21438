package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			"Valid development config",
			Config{Port: "8642", SessionSecret: "dev-secret", BackendURL: "http://localhost:3000", Env: "development"},
			false,
		},
		{
			"Missing port",
			Config{SessionSecret: "dev-secret", BackendURL: "http://localhost:3000"},
			true,
		},
		{
			"Missing session secret",
			Config{Port: "8642", BackendURL: "http://localhost:3000"},
			true,
		},
		{
			"Missing backend URL",
			Config{Port: "8642", SessionSecret: "dev-secret"},
			true,
		},
		{
			"Production with default secret",
			Config{Port: "8642", SessionSecret: "your-secret-key-change-in-production", BackendURL: "http://backend", Env: "production"},
			true,
		},
		{
			"Production with short secret",
			Config{Port: "8642", SessionSecret: "short", BackendURL: "http://backend", Env: "production"},
			true,
		},
		{
			"Production with strong secret",
			Config{Port: "8642", SessionSecret: "secure-secret-at-least-32-chars-long", BackendURL: "http://backend", Env: "prod"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8642", c.Port)
	assert.Equal(t, "localhost:6379", c.RedisURL)
	assert.Equal(t, "http://localhost:3000", c.BackendURL)
	assert.False(t, c.TracingEnabled)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("REDIS_URL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("PORT", "9999")
	os.Setenv("REDIS_URL", "redis://custom:6380")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "redis://custom:6380", c.RedisURL)
}
