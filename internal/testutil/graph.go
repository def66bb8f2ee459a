package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/inmemorygraph"
	"github.com/vk/flowgrid/internal/nodes"
)

// GraphBuilder assembles small graphs for tests. Every method fails the test
// on error, so calls can be chained.
type GraphBuilder struct {
	t     *testing.T
	ctx   context.Context
	reg   *nodes.Registry
	store *inmemorygraph.Store
	n     int
}

// NewGraph starts an empty graph using the builtin node registry.
func NewGraph(t *testing.T) *GraphBuilder {
	t.Helper()
	return &GraphBuilder{t: t, ctx: context.Background(), reg: nodes.Builtin(), store: inmemorygraph.New()}
}

// Node adds a node of typ with the registry's default ports. props may be
// nil.
func (g *GraphBuilder) Node(id, typ string, props graph.Properties) *GraphBuilder {
	g.t.Helper()
	ports, err := nodes.DefaultPorts(g.reg, typ)
	require.NoError(g.t, err)
	require.NoError(g.t, g.store.AddNode(g.ctx, &graph.Node{ID: id, Type: typ, Ports: ports, Properties: props}))
	return g
}

// Connect links two endpoints written as "node.port" or just "node". A bare
// node id uses "output" on the source side and "input" on the target side.
func (g *GraphBuilder) Connect(from, to string) *GraphBuilder {
	g.t.Helper()
	fromNode, fromPort := endpoint(from, graph.PortOutput)
	toNode, toPort := endpoint(to, graph.PortInput)
	g.n++
	require.NoError(g.t, g.store.AddConnection(g.ctx, graph.Connection{
		ID:         fmt.Sprintf("c%d", g.n),
		FromNodeID: fromNode,
		FromPortID: fromPort,
		ToNodeID:   toNode,
		ToPortID:   toPort,
	}))
	return g
}

// Chain connects each id to the next with default ports.
func (g *GraphBuilder) Chain(ids ...string) *GraphBuilder {
	g.t.Helper()
	for i := 1; i < len(ids); i++ {
		g.Connect(ids[i-1], ids[i])
	}
	return g
}

func endpoint(s, defPort string) (string, string) {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, defPort
}

// Store returns the graph.
func (g *GraphBuilder) Store() *inmemorygraph.Store { return g.store }

// Registry returns the registry used for ports and behaviors.
func (g *GraphBuilder) Registry() *nodes.Registry { return g.reg }

// Behaviors instantiates every node.
func (g *GraphBuilder) Behaviors() map[string]nodes.Behavior {
	g.t.Helper()
	b, err := nodes.Instantiate(g.ctx, g.reg, g.store)
	require.NoError(g.t, err)
	return b
}
