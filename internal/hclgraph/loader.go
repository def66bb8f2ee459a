package hclgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/expr"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/inmemorygraph"
	"github.com/vk/flowgrid/internal/nodes"
)

// Loader turns HCL files into a graph store.
type Loader struct {
	reg *nodes.Registry
}

// NewLoader creates a loader that resolves node types against reg.
func NewLoader(reg *nodes.Registry) *Loader {
	return &Loader{reg: reg}
}

// fileRoot is decoded from every file.
type fileRoot struct {
	Nodes       []*nodeBlock       `hcl:"node,block"`
	Connections []*connectionBlock `hcl:"connection,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type nodeBlock struct {
	Type string   `hcl:"type,label"`
	ID   string   `hcl:"id,label"`
	Body hcl.Body `hcl:",remain"`
}

type connectionBlock struct {
	ID   string `hcl:"id,optional"`
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type parsed struct {
	file string
	root fileRoot
}

// Load reads every .hcl file found under paths (files or directories) into a
// new store. Missing paths are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*inmemorygraph.Store, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var all []parsed
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		p, err := decode(file, f)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}
	return l.build(ctx, all)
}

// Parse loads a single in-memory document.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*inmemorygraph.Store, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	p, err := decode(filename, f)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, []parsed{p})
}

func decode(file string, f *hcl.File) (parsed, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return parsed{}, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}
	return parsed{file: file, root: root}, nil
}

// build adds every node before any connection so files may reference each
// other.
func (l *Loader) build(ctx context.Context, files []parsed) (*inmemorygraph.Store, error) {
	store := inmemorygraph.New()

	for _, p := range files {
		for _, nb := range p.root.Nodes {
			n, err := l.translateNode(nb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.file, err)
			}
			if err := store.AddNode(ctx, n); err != nil {
				return nil, fmt.Errorf("%s: %w", p.file, err)
			}
		}
	}

	for _, p := range files {
		for _, cb := range p.root.Connections {
			c, err := translateConnection(cb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.file, err)
			}
			if err := store.AddConnection(ctx, c); err != nil {
				return nil, fmt.Errorf("%s: %w", p.file, err)
			}
		}
	}

	ctxlog.FromContext(ctx).Debug("HCL loading complete.", "nodes", len(store.Nodes(ctx)), "connections", len(store.Connections(ctx)))
	return store, nil
}

func (l *Loader) translateNode(nb *nodeBlock) (*graph.Node, error) {
	ports, err := nodes.DefaultPorts(l.reg, nb.Type)
	if err != nil {
		return nil, fmt.Errorf("node '%s': %w", nb.ID, err)
	}

	attrs, diags := nb.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("node '%s': %w", nb.ID, diags)
	}

	n := &graph.Node{ID: nb.ID, Type: nb.Type, Ports: ports, Properties: graph.Properties{}}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node '%s' attribute '%s': %w", nb.ID, name, diags)
		}
		if name == "title" {
			n.Title = fmt.Sprint(expr.FromCty(val))
			continue
		}
		n.Properties[name] = expr.FromCty(val)
	}
	return n, nil
}

func translateConnection(cb *connectionBlock) (graph.Connection, error) {
	fromNode, fromPort, err := splitEndpoint(cb.From, graph.PortOutput)
	if err != nil {
		return graph.Connection{}, fmt.Errorf("connection from: %w", err)
	}
	toNode, toPort, err := splitEndpoint(cb.To, graph.PortInput)
	if err != nil {
		return graph.Connection{}, fmt.Errorf("connection to: %w", err)
	}

	id := cb.ID
	if id == "" {
		id = fmt.Sprintf("%s.%s->%s.%s", fromNode, fromPort, toNode, toPort)
	}
	return graph.Connection{
		ID:         id,
		FromNodeID: fromNode,
		FromPortID: fromPort,
		ToNodeID:   toNode,
		ToPortID:   toPort,
	}, nil
}

// splitEndpoint parses "node.port" or "node".
func splitEndpoint(s, defPort string) (node, port string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("endpoint must not be empty")
	}
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return s, defPort, nil
	}
	node, port = s[:i], s[i+1:]
	if node == "" || port == "" {
		return "", "", fmt.Errorf("malformed endpoint %q", s)
	}
	return node, port, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		all = append(all, p)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return all, nil
}
