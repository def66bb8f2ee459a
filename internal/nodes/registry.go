package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
)

// Category groups node kinds for display.
type Category string

const (
	CategoryFlow  Category = "flow"
	CategoryLogic Category = "logic"
	CategoryData  Category = "data"
	CategoryAct   Category = "action"
)

// Definition describes one node type: its ports and how to build its
// behavior from node properties.
type Definition struct {
	Type     string
	Kind     Kind
	Category Category
	Inputs   []string
	Outputs  []string
	Build    func(graph.Properties) (Behavior, error)
}

// Ports returns fresh copies of the declared ports.
func (d *Definition) Ports() graph.Ports {
	return graph.Ports{Input: slices.Clone(d.Inputs), Output: slices.Clone(d.Outputs)}
}

// Registry maps node types to definitions.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Registering the same type twice is a
// programming error and panics.
func (r *Registry) Register(d Definition) {
	if d.Type == "" {
		d.Type = string(d.Kind)
	}
	if d.Build == nil {
		panic(fmt.Sprintf("node type '%s' has no Build function", d.Type))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[d.Type]; exists {
		panic(fmt.Sprintf("node type '%s' already registered", d.Type))
	}
	slog.Debug("Registering node type.", "type", d.Type, "kind", d.Kind)
	r.defs[d.Type] = &d
	r.order = append(r.order, d.Type)
}

// Lookup returns the definition registered for typ.
func (r *Registry) Lookup(typ string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[typ]
	return d, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

var (
	inPorts     = []string{graph.PortInput}
	outPorts    = []string{graph.PortOutput}
	noPorts     = []string{}
	gatePorts   = []string{graph.PortTrigger, graph.PortData}
	branchPorts = []string{graph.PortYes, graph.PortNo}
)

// Builtin returns a registry holding every builtin node kind.
func Builtin() *Registry {
	r := NewRegistry()
	for _, d := range []Definition{
		{Kind: KindStart, Category: CategoryFlow, Inputs: noPorts, Outputs: outPorts, Build: newStart},
		{Kind: KindScheduler, Category: CategoryFlow, Inputs: noPorts, Outputs: outPorts, Build: newScheduler},
		{Kind: KindEnd, Category: CategoryFlow, Inputs: inPorts, Outputs: noPorts, Build: newEnd},
		{Kind: KindDelay, Category: CategoryFlow, Inputs: inPorts, Outputs: outPorts, Build: newDelay},
		{Kind: KindAction, Category: CategoryFlow, Inputs: inPorts, Outputs: outPorts, Build: newAction},
		{Kind: KindDecision, Category: CategoryLogic, Inputs: inPorts, Outputs: branchPorts, Build: newDecision},
		{Kind: KindSplitter, Category: CategoryLogic, Inputs: inPorts, Outputs: outPorts, Build: newSplitter},
		{Kind: KindGate, Category: CategoryLogic, Inputs: gatePorts, Outputs: outPorts, Build: newGate},
		{Kind: KindAwaitAll, Category: CategoryLogic, Inputs: inPorts, Outputs: outPorts, Build: newAwaitAll},
		{Kind: KindRepeater, Category: CategoryLogic, Inputs: inPorts, Outputs: outPorts, Build: newRepeater},
		{Kind: KindQueue, Category: CategoryLogic, Inputs: inPorts, Outputs: outPorts, Build: newBuffer(KindQueue, FIFO)},
		{Kind: KindStack, Category: CategoryLogic, Inputs: inPorts, Outputs: outPorts, Build: newBuffer(KindStack, LIFO)},
		{Kind: KindCounter, Category: CategoryData, Inputs: inPorts, Outputs: outPorts, Build: newCounter},
		{Kind: KindCalculate, Category: CategoryData, Inputs: inPorts, Outputs: outPorts, Build: newCalculate},
		{Kind: KindConstant, Category: CategoryData, Inputs: inPorts, Outputs: outPorts, Build: newConstant},
		{Kind: KindEnv, Category: CategoryData, Inputs: inPorts, Outputs: outPorts, Build: newEnvVar},
		{Kind: KindLog, Category: CategoryData, Inputs: inPorts, Outputs: outPorts, Build: newLog},
		{Kind: KindBell, Category: CategoryAct, Inputs: inPorts, Outputs: outPorts, Build: newBell},
	} {
		r.Register(d)
	}
	return r
}

// DefaultPorts returns the ports declared for typ.
func DefaultPorts(reg *Registry, typ string) (graph.Ports, error) {
	d, ok := reg.Lookup(typ)
	if !ok {
		return graph.Ports{}, fmt.Errorf("unknown node type '%s'", typ)
	}
	return d.Ports(), nil
}

// Instantiate builds the behavior of every node in the store. All build
// errors are reported together.
func Instantiate(ctx context.Context, reg *Registry, store graph.Store) (map[string]Behavior, error) {
	logger := ctxlog.FromContext(ctx)
	behaviors := make(map[string]Behavior)
	var errs []error

	for _, n := range store.Nodes(ctx) {
		d, ok := reg.Lookup(n.Type)
		if !ok {
			errs = append(errs, fmt.Errorf("node '%s': unknown type '%s'", n.ID, n.Type))
			continue
		}
		b, err := d.Build(n.Properties)
		if err != nil {
			errs = append(errs, fmt.Errorf("node '%s' (%s): %w", n.ID, n.Type, err))
			continue
		}
		behaviors[n.ID] = b
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	logger.Debug("Instantiated node behaviors.", "count", len(behaviors))
	return behaviors, nil
}
