package validator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/internal/validator"
)

func validate(t *testing.T, g *testutil.GraphBuilder) validator.Report {
	t.Helper()
	return validator.Validate(context.Background(), g.Store(), g.Behaviors(), validator.DefaultOptions())
}

func codes(fs []validator.Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.Code)
	}
	return out
}

func TestValidate_MinimalGraph(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("e", "end", nil).
		Chain("s", "e")

	r := validate(t, g)
	assert.True(t, r.Valid())
	assert.Empty(t, r.Errors())
	assert.NoError(t, r.Err())
}

func TestValidate_NoEntryPoint(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("d", "delay", graph.Properties{"ms": 10}).
		Node("e", "end", nil).
		Chain("d", "e")

	r := validate(t, g)
	assert.False(t, r.Valid())
	assert.Contains(t, codes(r.Errors()), validator.CodeNoEntry)
	assert.ErrorIs(t, r.Err(), validator.ErrInvalid)
}

func TestValidate_MultipleEntryPoints(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("sch", "scheduler", graph.Properties{"interval": 1, "repeats": 1}).
		Node("aw", "awaitall", nil).
		Node("e", "end", nil).
		Connect("s", "aw").
		Connect("sch", "aw").
		Chain("aw", "e")

	r := validate(t, g)
	assert.Equal(t, []string{validator.CodeMultipleEntries}, codes(r.Errors()))
}

func TestValidate_TwoEndNodes(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("sp", "splitter", nil).
		Node("e1", "end", nil).
		Node("e2", "end", nil).
		Chain("s", "sp").
		Connect("sp", "e1").
		Connect("sp", "e2")

	r := validate(t, g)
	assert.False(t, r.Valid())
	assert.Equal(t, []string{validator.CodeMultipleSinks}, codes(r.Errors()))
}

func TestValidate_AllowMultipleEnds(t *testing.T) {
	opts := validator.DefaultOptions()
	opts.AllowMultipleEnds = true

	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("sp", "splitter", nil).
		Node("e1", "end", nil).
		Node("e2", "end", nil).
		Chain("s", "sp").
		Connect("sp", "e1").
		Connect("sp", "e2")
	r := validator.Validate(context.Background(), g.Store(), g.Behaviors(), opts)
	assert.True(t, r.Valid(), "%v", r.Findings)

	noEnd := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("l", "log", nil).
		Chain("s", "l")
	r = validator.Validate(context.Background(), noEnd.Store(), noEnd.Behaviors(), opts)
	assert.Contains(t, codes(r.Errors()), validator.CodeNoSink, "at least one end is still required")
}

func TestValidate_UnconnectedRequiredInput(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("gate", "gate", nil).
		Node("e", "end", nil).
		Connect("s", "gate.trigger").
		Chain("gate", "e")

	r := validate(t, g)
	require.False(t, r.Valid())
	errs := r.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, validator.CodeUnconnectedInput, errs[0].Code)
	assert.Equal(t, "gate", errs[0].NodeID)
	assert.Contains(t, errs[0].Message, `"data"`)
}

func TestValidate_UnconnectedOutput(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("dec", "decision", nil).
		Node("e", "end", nil).
		Chain("s", "dec").
		Connect("dec.yes", "e")

	r := validate(t, g)
	assert.Equal(t, []string{validator.CodeUnconnectedOutput}, codes(r.Errors()))
}

func TestValidate_ConstantNeedsNoInput(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("k", "constant", graph.Properties{"value": "x"}).
		Node("gate", "gate", nil).
		Node("e", "end", nil).
		Connect("s", "gate.trigger").
		Connect("k", "gate.data").
		Chain("gate", "e")

	assert.True(t, validate(t, g).Valid())
}

func TestValidate_SharedPorts(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("l1", "log", nil).
		Node("l2", "log", nil).
		Node("e", "end", nil).
		Connect("s", "l1").
		Connect("s", "l2").
		Connect("l1", "e").
		Connect("l2", "e")

	r := validate(t, g)
	assert.ElementsMatch(t, []string{validator.CodeSharedOutput, validator.CodeSharedInput}, codes(r.Errors()))
}

func TestValidate_FanOutAndFanInAllowed(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("sp", "splitter", nil).
		Node("a", "log", nil).
		Node("b", "log", nil).
		Node("aw", "awaitall", nil).
		Node("e", "end", nil).
		Chain("s", "sp").
		Connect("sp", "a").
		Connect("sp", "b").
		Connect("a", "aw").
		Connect("b", "aw").
		Chain("aw", "e")

	r := validate(t, g)
	assert.True(t, r.Valid(), "%v", r.Findings)
}

func delayChain(t *testing.T, outer, inner int) *testutil.GraphBuilder {
	return testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("outer", "delay", graph.Properties{"ms": outer}).
		Node("mid", "log", nil).
		Node("inner", "delay", graph.Properties{"ms": inner}).
		Node("e", "end", nil).
		Chain("s", "outer", "mid", "inner", "e")
}

func TestValidate_TimerOrdering(t *testing.T) {
	t.Run("equal delays are rejected", func(t *testing.T) {
		r := validate(t, delayChain(t, 2000, 2000))
		assert.False(t, r.Valid())
		assert.Equal(t, []string{validator.CodeTimerOrder}, codes(r.Errors()))
		assert.Equal(t, "inner", r.Errors()[0].NodeID)
	})

	t.Run("longer outer delay is accepted", func(t *testing.T) {
		assert.True(t, validate(t, delayChain(t, 3000, 2000)).Valid())
	})

	t.Run("policy can be disabled", func(t *testing.T) {
		g := delayChain(t, 1000, 2000)
		r := validator.Validate(context.Background(), g.Store(), g.Behaviors(), validator.Options{})
		assert.True(t, r.Valid())
	})
}

func TestValidate_TimerOrderingSurvivesCycles(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("sp", "splitter", nil).
		Node("d", "delay", graph.Properties{"ms": 500}).
		Node("aw", "awaitall", nil).
		Node("e", "end", nil).
		Chain("s", "aw", "d", "sp").
		Connect("sp", "aw").
		Connect("sp", "e")

	r := validate(t, g)
	assert.True(t, r.Valid(), "%v", r.Findings)
	assert.True(t, r.HasCode(validator.CodeCycle))
}

func TestValidate_SchedulerPathBudget(t *testing.T) {
	build := func(interval float64) *testutil.GraphBuilder {
		return testutil.NewGraph(t).
			Node("sch", "scheduler", graph.Properties{"interval": interval, "repeats": 3}).
			Node("d", "delay", graph.Properties{"ms": 800}).
			Node("r", "repeater", graph.Properties{"count": 3, "delay": 200}).
			Node("e", "end", nil).
			Chain("sch", "d", "r", "e")
	}

	// 800ms delay + 2 * 200ms repeat spacing = 1.2s.
	slow := validate(t, build(1))
	assert.True(t, slow.Valid(), "budget findings never block")
	require.Len(t, slow.Warnings(), 1)
	assert.Equal(t, validator.CodePathBudget, slow.Warnings()[0].Code)

	fast := validate(t, build(2))
	assert.Empty(t, fast.Warnings())
}

func TestValidate_UnknownPort(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("s", "start", nil).
		Node("e", "end", nil).
		Chain("s", "e").
		Connect("s", "e.sideways")

	r := validate(t, g)
	assert.Contains(t, codes(r.Errors()), validator.CodeUnknownPort)
}

func TestValidate_ReportsEverything(t *testing.T) {
	g := testutil.NewGraph(t).
		Node("l", "log", nil)

	r := validate(t, g)
	assert.ElementsMatch(t, []string{
		validator.CodeNoEntry,
		validator.CodeNoSink,
		validator.CodeUnconnectedInput,
		validator.CodeUnconnectedOutput,
	}, codes(r.Errors()))
	assert.Contains(t, r.Err().Error(), "graph must have an end node")
}
