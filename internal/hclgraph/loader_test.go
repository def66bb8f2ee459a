package hclgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/validator"
)

const sample = `
node "start" "begin" {}

node "delay" "wait" {
  title = "Wait a bit"
  ms    = 250
}

node "decision" "check" {
  mode       = "expression"
  expression = "payload.ready == true"
}

node "awaitall" "join" {}

node "end" "done" {}

connection {
  from = "begin"
  to   = "wait.input"
}

connection {
  id   = "to-check"
  from = "wait.output"
  to   = "check"
}

connection {
  from = "check.yes"
  to   = "join"
}

connection {
  from = "check.no"
  to   = "join"
}

connection {
  from = "join"
  to   = "done"
}
`

func TestParse(t *testing.T) {
	ctx := context.Background()
	store, err := NewLoader(nodes.Builtin()).Parse(ctx, "sample.hcl", []byte(sample))
	require.NoError(t, err)

	var ids []string
	for _, n := range store.Nodes(ctx) {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"begin", "wait", "check", "join", "done"}, ids)

	wait, ok := store.Node(ctx, "wait")
	require.True(t, ok)
	assert.Equal(t, "Wait a bit", wait.Title)
	assert.Equal(t, "delay", wait.Type)
	if diff := cmp.Diff(graph.Properties{"ms": int64(250)}, wait.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{graph.PortInput}, wait.Ports.Input)
	assert.Equal(t, []string{graph.PortOutput}, wait.Ports.Output)

	check, _ := store.Node(ctx, "check")
	assert.Equal(t, []string{"yes", "no"}, check.Ports.Output)

	first, ok := store.Connection(ctx, "begin.output->wait.input")
	require.True(t, ok, "default id is derived from the endpoints")
	assert.Equal(t, "wait", first.ToNodeID)

	named, ok := store.Connection(ctx, "to-check")
	require.True(t, ok)
	assert.Equal(t, graph.PortOutput, named.FromPortID)
	assert.Equal(t, graph.PortInput, named.ToPortID)
	assert.Len(t, store.Connections(ctx), 5)
}

func TestParse_LoadedGraphValidates(t *testing.T) {
	ctx := context.Background()
	reg := nodes.Builtin()
	store, err := NewLoader(reg).Parse(ctx, "sample.hcl", []byte(sample))
	require.NoError(t, err)

	behaviors, err := nodes.Instantiate(ctx, reg, store)
	require.NoError(t, err)
	report := validator.Validate(ctx, store, behaviors, validator.DefaultOptions())
	assert.True(t, report.Valid(), "findings: %v", report.Findings)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax error",
			src:     `node "start" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "missing id label",
			src:     `node "start" {}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "unknown type",
			src:     `node "teleport" "x" {}`,
			wantErr: "unknown node type 'teleport'",
		},
		{
			name:    "duplicate node",
			src:     "node \"start\" \"a\" {}\nnode \"end\" \"a\" {}",
			wantErr: "node 'a' already exists",
		},
		{
			name:    "connection to unknown node",
			src:     "node \"start\" \"a\" {}\nconnection {\n  from = \"a\"\n  to = \"ghost\"\n}",
			wantErr: "target node 'ghost' not found",
		},
		{
			name:    "malformed endpoint",
			src:     "node \"start\" \"a\" {}\nconnection {\n  from = \"a.\"\n  to = \"a\"\n}",
			wantErr: "malformed endpoint",
		},
		{
			name:    "missing to",
			src:     "connection {\n  from = \"a\"\n}",
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "non-literal property",
			src:     "node \"log\" \"l\" {\n  watchKey = payload.x\n}",
			wantErr: "attribute 'watchKey'",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader(nodes.Builtin()).Parse(context.Background(), "bad.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_AcrossFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "more")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`
node "start" "s" {}
connection {
  from = "s"
  to   = "e"
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.hcl"), []byte(`node "end" "e" {}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	ctx := context.Background()
	store, err := NewLoader(nodes.Builtin()).Load(ctx, dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)

	assert.Len(t, store.Nodes(ctx), 2)
	conns := store.Connections(ctx)
	require.Len(t, conns, 1)
	assert.Equal(t, "s", conns[0].FromNodeID)
	assert.Equal(t, "e", conns[0].ToNodeID)
}

func TestFindAllHCLFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hcl")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	files, err := findAllHCLFiles([]string{dir, a, b, filepath.Join(dir, "nope")})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files, "duplicates and non-hcl files are dropped")
}

func TestSplitEndpoint(t *testing.T) {
	testCases := []struct {
		in, node, port string
		wantErr        bool
	}{
		{in: "a", node: "a", port: "def"},
		{in: "a.yes", node: "a", port: "yes"},
		{in: "ns.a.out", node: "ns.a", port: "out"},
		{in: " a ", node: "a", port: "def"},
		{in: "", wantErr: true},
		{in: ".x", wantErr: true},
	}
	for _, tc := range testCases {
		node, port, err := splitEndpoint(tc.in, "def")
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.node, node)
		assert.Equal(t, tc.port, port)
	}
}
