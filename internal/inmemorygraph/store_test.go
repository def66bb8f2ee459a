package inmemorygraph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
)

func node(id, typ string) *graph.Node {
	return &graph.Node{ID: id, Type: typ, Ports: graph.Ports{
		Input:  []string{graph.PortInput},
		Output: []string{graph.PortOutput},
	}}
}

func TestAddAndGetNode(t *testing.T) {
	s := New()
	ctx := context.Background()
	n := node("a", "log")

	require.NoError(t, s.AddNode(ctx, n))

	got, ok := s.Node(ctx, "a")
	require.True(t, ok)
	assert.Same(t, n, got)

	_, ok = s.Node(ctx, "missing")
	assert.False(t, ok)
}

func TestAddNode_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()

	assert.Error(t, s.AddNode(ctx, nil))
	assert.Error(t, s.AddNode(ctx, &graph.Node{}))
	require.NoError(t, s.AddNode(ctx, node("a", "log")))
	assert.ErrorContains(t, s.AddNode(ctx, node("a", "log")), "already exists")
}

func TestConnections(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddNode(ctx, node(id, "log")))
	}

	ab := graph.Connection{ID: "ab", FromNodeID: "a", FromPortID: "output", ToNodeID: "b", ToPortID: "input"}
	ac := graph.Connection{ID: "ac", FromNodeID: "a", FromPortID: "other", ToNodeID: "c", ToPortID: "input"}
	bc := graph.Connection{ID: "bc", FromNodeID: "b", FromPortID: "output", ToNodeID: "c", ToPortID: "input"}
	require.NoError(t, s.AddConnection(ctx, ab))
	require.NoError(t, s.AddConnection(ctx, ac))
	require.NoError(t, s.AddConnection(ctx, bc))

	assert.Equal(t, []graph.Connection{ab, ac, bc}, s.Connections(ctx))
	assert.Equal(t, []graph.Connection{ab, ac}, s.ConnectionsFrom(ctx, "a"))
	assert.Equal(t, []graph.Connection{ac, bc}, s.ConnectionsTo(ctx, "c"))
	assert.Equal(t, []graph.Connection{ab}, s.ConnectionsFromPort(ctx, "a", "output"))
	assert.Empty(t, s.ConnectionsFromPort(ctx, "c", "output"))
	assert.Empty(t, s.ConnectionsTo(ctx, "a"))

	got, ok := s.Connection(ctx, "bc")
	require.True(t, ok)
	assert.Equal(t, bc, got)
}

func TestAddConnection_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, node("a", "log")))

	err := s.AddConnection(ctx, graph.Connection{ID: "x", FromNodeID: "dne", ToNodeID: "a"})
	assert.ErrorContains(t, err, "source node 'dne' not found")

	err = s.AddConnection(ctx, graph.Connection{ID: "x", FromNodeID: "a", ToNodeID: "dne"})
	assert.ErrorContains(t, err, "target node 'dne' not found")

	err = s.AddConnection(ctx, graph.Connection{FromNodeID: "a", ToNodeID: "a"})
	assert.ErrorContains(t, err, "non-empty id")
}

func TestNodes_InsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids := []string{"z", "a", "m", "b"}
	for _, id := range ids {
		require.NoError(t, s.AddNode(ctx, node(id, "log")))
	}

	var got []string
	for _, n := range s.Nodes(ctx) {
		got = append(got, n.ID)
	}
	assert.Equal(t, ids, got)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, node("hub", "splitter")))

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("leaf-%d", i)
			assert.NoError(t, s.AddNode(ctx, node(id, "end")))
			assert.NoError(t, s.AddConnection(ctx, graph.Connection{
				ID: "c-" + id, FromNodeID: "hub", FromPortID: "output", ToNodeID: id, ToPortID: "input",
			}))
			_ = s.ConnectionsFrom(ctx, "hub")
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Nodes(ctx), n+1)
	assert.Len(t, s.ConnectionsFromPort(ctx, "hub", "output"), n)
}
