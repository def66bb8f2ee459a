package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/runstate"
	"github.com/vk/flowgrid/internal/testutil"
)

const linear = `
node "start" "s" {}

node "delay" "d" {
  ms = 20
}

node "log" "l" {}

node "end" "e" {}

connection {
  from = "s"
  to   = "d"
}

connection {
  from = "d"
  to   = "l"
}

connection {
  from = "l"
  to   = "e"
}
`

func TestRun_CompletesLinearGraph(t *testing.T) {
	a, logs := testutil.SetupAppTest(t, linear, app.Config{TickInterval: 5 * time.Millisecond, Timeout: 5 * time.Second})

	require.NoError(t, a.Run(context.Background()))

	out := logs.String()
	assert.Contains(t, out, "Run started.")
	assert.Contains(t, out, "Message completed.")
	assert.Contains(t, out, "Execution finished.")
	assert.Contains(t, out, "Log node.")

	rs := a.RunState()
	require.NotNil(t, rs)
	assert.Equal(t, runstate.NodeCompleted, rs.Node("e"))

	families, err := a.Metrics().Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "flowgrid_messages_completed_total")
}

func TestRun_InvalidGraph(t *testing.T) {
	src := `
node "start" "s" {}
node "log" "l" {}
connection {
  from = "s"
  to   = "l"
}
`
	a, logs := testutil.SetupAppTest(t, src, app.Config{})

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrValidationFailed)
	assert.Contains(t, err.Error(), "graph must have an end node")
	assert.Contains(t, logs.String(), "Validation finding.")
}

func TestRun_Timeout(t *testing.T) {
	src := `
node "scheduler" "tick" {
  interval = 0.01
}
node "end" "e" {}
connection {
  from = "tick"
  to   = "e"
}
`
	a, _ := testutil.SetupAppTest(t, src, app.Config{TickInterval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond})

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, runstate.NodeIdle, a.RunState().Node("tick"), "an interrupted run is stopped")
}

func TestRun_Cancelled(t *testing.T) {
	src := `
node "scheduler" "tick" {}
node "end" "e" {}
connection {
  from = "tick"
  to   = "e"
}
`
	a, _ := testutil.SetupAppTest(t, src, app.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := a.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyGraph(t *testing.T) {
	a, logs := testutil.SetupAppTest(t, "", app.Config{})

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "No nodes found in graph")
}

func TestRun_LoadError(t *testing.T) {
	a, _ := testutil.SetupAppTest(t, `node "start" {`, app.Config{})

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load graph")
}

func TestRun_UnreachableEventFeedIsNotFatal(t *testing.T) {
	src := `
node "start" "s" {}
node "end" "e" {}
connection {
  from = "s"
  to   = "e"
}
`
	a, logs := testutil.SetupAppTest(t, src, app.Config{SocketURL: "::bad-url"})

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "Event feed unavailable")
}

func TestRun_MultipleEnds(t *testing.T) {
	src := `
node "start" "s" {}
node "splitter" "sp" {}
node "end" "ea" {}
node "end" "eb" {}

connection {
  from = "s"
  to   = "sp"
}

connection {
  from = "sp"
  to   = "ea"
}

connection {
  from = "sp"
  to   = "eb"
}
`
	a, _ := testutil.SetupAppTest(t, src, app.Config{})
	err := a.Run(context.Background())
	require.ErrorIs(t, err, executor.ErrValidationFailed)

	a, logs := testutil.SetupAppTest(t, src, app.Config{MultipleEnds: true, Timeout: 5 * time.Second})
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, logs.String(), "messages=2")
}
