package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	base := func() *Config {
		return &Config{
			EndpointAddrHTTP:             ":8080",
			AccessTokenValidityDuration:  90 * time.Second,
			RefreshTokenValidityDuration: time.Hour,
			LogLevel:                     "info",
		}
	}

	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-f", "refresh",
				"-t", "1", "-r", "3", "-k", "key", "-b", "4", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				RefreshSecretKey:             "refresh",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				MasterKey:                    "key",
				BcryptCost:                   4,
				LogLevel:                     "debug",
			},
		},
		{
			name: "no flags keeps sub-minute durations",
			args: nil,
			expected: &Config{
				EndpointAddrHTTP:             ":8080",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: time.Hour,
				LogLevel:                     "info",
			},
		},
		{
			name: "unknown flags ignored",
			args: []string{"-c", "cfg.json", "-x", "y", "-l", "warn"},
			expected: &Config{
				EndpointAddrHTTP:             ":8080",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: time.Hour,
				LogLevel:                     "warn",
			},
		},
		{
			name:    "non-numeric duration",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
