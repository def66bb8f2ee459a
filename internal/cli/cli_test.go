package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantErr  string
	}{
		{
			name: "positional path with defaults",
			args: []string{"graph.hcl"},
			want: &app.Config{GraphPath: "graph.hcl", LogFormat: "json", LogLevel: "info", Speed: 1, StrictTimers: true},
		},
		{
			name: "long flag wins over shorthand",
			args: []string{"-graph", "a.hcl", "-g", "b.hcl"},
			want: &app.Config{GraphPath: "a.hcl", LogFormat: "json", LogLevel: "info", Speed: 1, StrictTimers: true},
		},
		{
			name: "all options",
			args: []string{
				"-g", "dir", "-healthcheck-port", "8080", "-log-format", "TEXT", "-log-level", "debug",
				"-speed", "2.5", "-tick", "5ms", "-transit", "200ms", "-timeout", "1m", "-strict-timers=false", "-seed", "42", "-multiple-ends",
				"-socket-url", "http://localhost:3000", "-socket-namespace", "/runs", "-socket-insecure",
			},
			want: &app.Config{
				GraphPath:       "dir",
				HealthcheckPort: 8080,
				LogFormat:       "text",
				LogLevel:        "debug",
				Speed:           2.5,
				TickInterval:    5 * time.Millisecond,
				TransitDelay:    200 * time.Millisecond,
				Timeout:         time.Minute,
				StrictTimers:    false,
				Seed:            42,
				MultipleEnds:    true,
				SocketURL:       "http://localhost:3000",
				SocketNamespace: "/runs",
				SocketInsecure:  true,
			},
		},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "no path prints usage", args: nil, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: "flag provided but not defined"},
		{name: "bad log format", args: []string{"-log-format", "xml", "g.hcl"}, wantErr: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "loud", "g.hcl"}, wantErr: "invalid log-level"},
		{name: "zero speed", args: []string{"-speed", "0", "g.hcl"}, wantErr: "invalid speed"},
		{name: "negative timeout", args: []string{"-timeout", "-1s", "g.hcl"}, wantErr: "must not be negative"},
		{name: "port out of range", args: []string{"-healthcheck-port", "70000", "g.hcl"}, wantErr: "out of range"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)

			if tc.wantErr != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 2, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Nil(t, cfg)
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			if diff := cmp.Diff(tc.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
