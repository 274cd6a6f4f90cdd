package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	type want struct {
		apiAddress   string
		sessionFile  string
		poolInterval time.Duration
		timeout      time.Duration
	}

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		want  want
	}{
		{
			name:  "defaults",
			env:   map[string]string{},
			flags: []string{},
			want: want{
				apiAddress:   "http://localhost:8080",
				sessionFile:  "payda-session.json",
				poolInterval: 3 * time.Second,
				timeout:      10 * time.Second,
			},
		},
		{
			name: "env only",
			env: map[string]string{
				"PAYDA_API_ADDRESS":        "http://localhost:9999",
				"PAYDA_SESSION_FILE":       "/tmp/session.json",
				"PAYDA_POOL_POLL_INTERVAL": "5s",
				"PAYDA_REQUEST_TIMEOUT":    "30s",
			},
			flags: []string{},
			want: want{
				apiAddress:   "http://localhost:9999",
				sessionFile:  "/tmp/session.json",
				poolInterval: 5 * time.Second,
				timeout:      30 * time.Second,
			},
		},
		{
			name: "flags only",
			env:  map[string]string{},
			flags: []string{
				"-a", "http://localhost:7777",
				"-s", "/var/lib/payda/session.json",
				"-pool-interval", "2s",
			},
			want: want{
				apiAddress:   "http://localhost:7777",
				sessionFile:  "/var/lib/payda/session.json",
				poolInterval: 2 * time.Second,
				timeout:      10 * time.Second,
			},
		},
		{
			name: "env overrides flags",
			env: map[string]string{
				"PAYDA_API_ADDRESS":  "http://env:9000",
				"PAYDA_SESSION_FILE": "/env/session.json",
			},
			flags: []string{
				"-a", "http://flag:8000",
				"-s", "/flag/session.json",
			},
			want: want{
				apiAddress:   "http://env:9000",
				sessionFile:  "/env/session.json",
				poolInterval: 3 * time.Second,
				timeout:      10 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			os.Args = append([]string{"test"}, tt.flags...)

			cfg, err := Parse()
			require.NoError(t, err)

			assert.Equal(t, tt.want.apiAddress, cfg.APIAddress)
			assert.Equal(t, tt.want.sessionFile, cfg.SessionFile)
			assert.Equal(t, tt.want.poolInterval, cfg.PoolPollInterval)
			assert.Equal(t, tt.want.timeout, cfg.RequestTimeout)
		})
	}
}
