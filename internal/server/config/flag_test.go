package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-u", "https://memorial.example", "-d", "db", "-s", "secret",
				"-bootstrap-secret", "boot", "-link-policy", "once", "-production", "-redis", "localhost:6379",
				"-login-window", "5", "-b", "bucket", "-e", "http://endpoint", "-log-level", "debug",
			},
			expected: &Config{
				HTTPAddr:        "127.0.0.1:9090",
				PublicBaseURL:   "https://memorial.example",
				DatabaseDSN:     "db",
				SessionSecret:   "secret",
				BootstrapSecret: "boot",
				LinkPolicy:      "once",
				Production:      true,
				RedisAddr:       "localhost:6379",
				LoginWindow:     5 * time.Minute,
				S3Bucket:        "bucket",
				S3BaseEndpoint:  "http://endpoint",
				LogLevel:        "debug",
			},
		},
		{
			name: "bool flag followed by positional and foreign flags",
			args: []string{"cmd", "-production", "serve", "-c", "cfg.json", "-a", ":1"},
			expected: &Config{
				HTTPAddr:   ":1",
				Production: true,
			},
		},
		{
			name:        "bad integer",
			args:        []string{"cmd", "-login-window", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
