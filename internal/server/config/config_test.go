package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMasterKey = strings.Repeat("ab", 32)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "refreshSecretKey", c.RefreshSecretKey)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "", c.MasterKey)
	assert.Equal(t, 0, c.BcryptCost)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr_http": "json:1",
		"secret_key":         "json-secret",
		"log_level":          "debug",
	})
	t.Setenv("MAILAUTH_SECRET_KEY", "env-secret")
	t.Setenv("MAILAUTH_ADDRESS", "env:2")

	os.Args = []string{"testbin", "-c", path, "-a", "flag:3"}

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "flag:3", c.EndpointAddrHTTP)
	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "refreshSecretKey", c.RefreshSecretKey)
}

func TestLoadConfig_BadJSONFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-config", "/does/not/exist.json"}

	c, err := LoadConfig()
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		c.MasterKey = testMasterKey
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults with master key", mutate: func(c *Config) {}},
		{name: "missing master key", mutate: func(c *Config) { c.MasterKey = "" }, wantErr: "master key"},
		{name: "short master key", mutate: func(c *Config) { c.MasterKey = "abcd" }, wantErr: "master key"},
		{name: "non-hex master key", mutate: func(c *Config) { c.MasterKey = strings.Repeat("zz", 32) }, wantErr: "master key"},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "secret key is empty"},
		{name: "empty refresh secret", mutate: func(c *Config) { c.RefreshSecretKey = "" }, wantErr: "refresh secret key is empty"},
		{name: "equal secrets", mutate: func(c *Config) { c.RefreshSecretKey = c.SecretKey }, wantErr: "must differ"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: "access token validity"},
		{
			name: "refresh not longer than access",
			mutate: func(c *Config) {
				c.AccessTokenValidityDuration = time.Hour
				c.RefreshTokenValidityDuration = time.Hour
			},
			wantErr: "refresh token validity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
