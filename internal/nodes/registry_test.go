package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/inmemorygraph"
)

func TestBuiltin_CoversEveryKind(t *testing.T) {
	reg := Builtin()
	for _, k := range Kinds {
		d, ok := reg.Lookup(string(k))
		require.True(t, ok, "kind %s", k)
		assert.Equal(t, k, d.Kind)

		b, err := d.Build(nil)
		if k == KindEnv {
			assert.Error(t, err, "env needs a key")
			continue
		}
		require.NoError(t, err, "kind %s builds with defaults", k)
		assert.Equal(t, k, b.Kind())
	}
	assert.Len(t, reg.Types(), len(Kinds))
}

func TestRegister_DuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	d := Definition{Kind: KindEnd, Build: newEnd}
	reg.Register(d)
	assert.Panics(t, func() { reg.Register(d) })
	assert.Panics(t, func() { reg.Register(Definition{Type: "custom"}) }, "a definition needs a Build function")
}

func TestDefaultPorts(t *testing.T) {
	reg := Builtin()

	ports, err := DefaultPorts(reg, "gate")
	require.NoError(t, err)
	assert.Equal(t, graph.Ports{Input: []string{"trigger", "data"}, Output: []string{"output"}}, ports)

	ports, err = DefaultPorts(reg, "decision")
	require.NoError(t, err)
	assert.Equal(t, []string{"yes", "no"}, ports.Output)

	ports.Output[0] = "mutated"
	again, _ := DefaultPorts(reg, "decision")
	assert.Equal(t, "yes", again.Output[0], "callers get copies")

	_, err = DefaultPorts(reg, "nope")
	assert.ErrorContains(t, err, "unknown node type")
}

func TestInstantiate(t *testing.T) {
	ctx := context.Background()
	reg := Builtin()
	store := inmemorygraph.New()
	require.NoError(t, store.AddNode(ctx, &graph.Node{ID: "s", Type: "start"}))
	require.NoError(t, store.AddNode(ctx, &graph.Node{ID: "d", Type: "delay", Properties: graph.Properties{"ms": 10}}))

	behaviors, err := Instantiate(ctx, reg, store)
	require.NoError(t, err)
	assert.Len(t, behaviors, 2)
	assert.Equal(t, KindDelay, behaviors["d"].Kind())
}

func TestInstantiate_CollectsAllErrors(t *testing.T) {
	ctx := context.Background()
	reg := Builtin()
	store := inmemorygraph.New()
	require.NoError(t, store.AddNode(ctx, &graph.Node{ID: "x", Type: "teleport"}))
	require.NoError(t, store.AddNode(ctx, &graph.Node{ID: "d", Type: "delay", Properties: graph.Properties{"ms": -1}}))

	_, err := Instantiate(ctx, reg, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node 'x': unknown type 'teleport'")
	assert.Contains(t, err.Error(), "node 'd' (delay)")
}

func TestKindClassification(t *testing.T) {
	assert.True(t, KindStart.IsSource())
	assert.True(t, KindScheduler.IsSource())
	assert.True(t, KindEnd.IsSink())
	assert.False(t, KindConstant.RequiresInput())
	assert.False(t, KindEnv.RequiresInput())
	assert.True(t, KindGate.RequiresInput())
	assert.True(t, KindAwaitAll.AllowsFanIn())
	assert.False(t, KindGate.AllowsFanIn())
	assert.True(t, KindSplitter.AllowsFanOut())
	assert.True(t, KindDecision.IsBranchOrMerge())
	assert.False(t, KindDelay.IsBranchOrMerge())
}
