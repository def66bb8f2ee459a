package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
)

// SetupAppTest writes src to a temporary graph file and returns an app
// configured to run it, logging at debug level into the returned buffer.
// With FLOWGRID_TEST_LOGS=true the log is printed when the test ends.
func SetupAppTest(t *testing.T, src string, cfg app.Config, opts ...app.Option) (*app.App, *SafeBuffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg.GraphPath = path
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	testApp := app.NewApp(logBuffer, config, opts...)

	t.Cleanup(func() {
		if os.Getenv("FLOWGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, logBuffer
}
