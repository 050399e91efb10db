package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "qwen2.5-coder:7b", cfg.Model)
	assert.Equal(t, "none", cfg.Token)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 0, cfg.MaxTokens)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
		assert.Equal(t, "none", cfg.Token)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.Host)
	})

	t.Run("with custom model and token", func(t *testing.T) {
		cfg := NewConfig(
			WithModel("gpt-4o-mini"),
			WithToken("sk-test"),
		)

		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "sk-test", cfg.Token)
	})

	t.Run("with sampling options", func(t *testing.T) {
		cfg := NewConfig(WithTemperature(0.7), WithMaxTokens(1024))

		assert.Equal(t, 0.7, cfg.Temperature)
		assert.Equal(t, 1024, cfg.MaxTokens)
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
			assert.Equal(t, "none", cfg.Token, "empty token defaults to none")
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid default", func(t *testing.T) {
		require.NoError(t, DefaultConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing host", func(c *Config) { c.Host = "" }, "Host is required"},
		{"missing model", func(c *Config) { c.Model = "" }, "Model is required"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, "Temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
		{"negative max tokens", func(c *Config) { c.MaxTokens = -1 }, "MaxTokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	t.Run("normalizes host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://example.com"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://example.com/v1", cfg.Host)
	})
}
