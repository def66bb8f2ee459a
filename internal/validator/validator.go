package validator

import (
	"context"
	"slices"
	"time"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/nodes"
)

// Options selects the optional policies.
type Options struct {
	// TimerOrdering enables check 5.
	TimerOrdering bool
	// AllowMultipleEnds relaxes check 2 to at least one end node, so fan-out
	// branches may finish at separate ends.
	AllowMultipleEnds bool
}

// DefaultOptions enables every restricting policy.
func DefaultOptions() Options {
	return Options{TimerOrdering: true}
}

type validation struct {
	ctx       context.Context
	store     graph.Store
	behaviors map[string]nodes.Behavior
	nodes     []*graph.Node
	report    Report
}

// Validate checks store. behaviors maps node ids to their instantiated
// behaviors; nodes without one are classified by their type name.
func Validate(ctx context.Context, store graph.Store, behaviors map[string]nodes.Behavior, opts Options) Report {
	v := &validation{
		ctx:       ctx,
		store:     store,
		behaviors: behaviors,
		nodes:     store.Nodes(ctx),
	}

	v.checkKnownTypes()
	v.checkEntryPoints()
	v.checkSinks(opts.AllowMultipleEnds)
	v.checkConnectedPorts()
	v.checkSharedPorts()
	if opts.TimerOrdering {
		v.checkTimerOrdering()
	}
	v.checkPathBudgets()
	v.checkEndpoints()
	v.checkCycles()

	ctxlog.FromContext(ctx).Debug("Graph validated.",
		"nodes", len(v.nodes),
		"errors", len(v.report.Errors()),
		"warnings", len(v.report.Warnings()),
	)
	return v.report
}

func (v *validation) kind(n *graph.Node) nodes.Kind {
	if b, ok := v.behaviors[n.ID]; ok {
		return b.Kind()
	}
	return nodes.Kind(n.Type)
}

func (v *validation) checkKnownTypes() {
	for _, n := range v.nodes {
		if _, ok := v.behaviors[n.ID]; ok {
			continue
		}
		if !slices.Contains(nodes.Kinds, nodes.Kind(n.Type)) {
			v.report.add(SeverityError, CodeUnknownType, n.ID, "node %s has unknown type %q", n.DisplayTitle(), n.Type)
		}
	}
}

func (v *validation) checkEntryPoints() {
	var count int
	for _, n := range v.nodes {
		if v.kind(n).IsSource() {
			count++
		}
	}
	switch {
	case count == 0:
		v.report.add(SeverityError, CodeNoEntry, "", "graph must have a start or scheduler node")
	case count > 1:
		v.report.add(SeverityError, CodeMultipleEntries, "", "graph must have exactly one start or scheduler node, found %d", count)
	}
}

func (v *validation) checkSinks(allowMany bool) {
	var count int
	for _, n := range v.nodes {
		if v.kind(n).IsSink() {
			count++
		}
	}
	switch {
	case count == 0:
		v.report.add(SeverityError, CodeNoSink, "", "graph must have an end node")
	case count > 1 && !allowMany:
		v.report.add(SeverityError, CodeMultipleSinks, "", "graph must have exactly one end node, found %d", count)
	}
}

func (v *validation) checkConnectedPorts() {
	for _, n := range v.nodes {
		k := v.kind(n)
		if k.RequiresInput() {
			incoming := v.store.ConnectionsTo(v.ctx, n.ID)
			for _, port := range n.Ports.Input {
				if !slices.ContainsFunc(incoming, func(c graph.Connection) bool { return c.ToPortID == port }) {
					v.report.add(SeverityError, CodeUnconnectedInput, n.ID, "input %q of %s is not connected", port, n.DisplayTitle())
				}
			}
		}
		if k.IsSink() {
			continue
		}
		for _, port := range n.Ports.Output {
			if len(v.store.ConnectionsFromPort(v.ctx, n.ID, port)) == 0 {
				v.report.add(SeverityError, CodeUnconnectedOutput, n.ID, "output %q of %s is not connected", port, n.DisplayTitle())
			}
		}
	}
}

func (v *validation) checkSharedPorts() {
	for _, n := range v.nodes {
		k := v.kind(n)

		perInput := make(map[string]int)
		for _, c := range v.store.ConnectionsTo(v.ctx, n.ID) {
			perInput[c.ToPortID]++
		}
		for _, port := range n.Ports.Input {
			if perInput[port] > 1 && !k.AllowsFanIn() {
				v.report.add(SeverityError, CodeSharedInput, n.ID, "input %q of %s has %d incoming connections; only an await-all node may merge branches", port, n.DisplayTitle(), perInput[port])
			}
		}

		for _, port := range n.Ports.Output {
			if cnt := len(v.store.ConnectionsFromPort(v.ctx, n.ID, port)); cnt > 1 && !k.AllowsFanOut() {
				v.report.add(SeverityError, CodeSharedOutput, n.ID, "output %q of %s has %d outgoing connections; only a splitter may fan out", port, n.DisplayTitle(), cnt)
			}
		}
	}
}

func (v *validation) delayOf(id string) (time.Duration, bool) {
	if d, ok := v.behaviors[id].(*nodes.Delay); ok {
		return d.Duration(), true
	}
	return 0, false
}

// checkTimerOrdering requires every delay reachable downstream of a delay to
// be strictly shorter than it.
func (v *validation) checkTimerOrdering() {
	for _, outer := range v.nodes {
		outerDur, ok := v.delayOf(outer.ID)
		if !ok {
			continue
		}

		visited := map[string]bool{outer.ID: true}
		queue := v.targets(outer.ID)
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if visited[id] {
				continue
			}
			visited[id] = true

			if innerDur, ok := v.delayOf(id); ok && innerDur >= outerDur {
				inner, _ := v.store.Node(v.ctx, id)
				v.report.add(SeverityError, CodeTimerOrder, id,
					"%s (%s) is downstream of %s (%s) and must be shorter",
					inner.DisplayTitle(), innerDur, outer.DisplayTitle(), outerDur)
			}
			queue = append(queue, v.targets(id)...)
		}
	}
}

func (v *validation) targets(id string) []string {
	conns := v.store.ConnectionsFrom(v.ctx, id)
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.ToNodeID)
	}
	return out
}

// cost is the processing time a node adds to a path.
func (v *validation) cost(id string) time.Duration {
	if d, ok := v.delayOf(id); ok {
		return d
	}
	if r, ok := v.behaviors[id].(*nodes.Repeater); ok {
		return r.Repeat().Duration()
	}
	return 0
}

// checkPathBudgets warns when a scheduler's longest downstream path takes
// longer than its interval.
func (v *validation) checkPathBudgets() {
	for _, n := range v.nodes {
		src, ok := v.behaviors[n.ID].(*nodes.Scheduler)
		if !ok {
			continue
		}

		onPath := map[string]bool{}
		var longest func(id string) time.Duration
		longest = func(id string) time.Duration {
			if onPath[id] {
				return 0
			}
			onPath[id] = true
			defer delete(onPath, id)

			var best time.Duration
			for _, next := range v.targets(id) {
				best = max(best, longest(next))
			}
			return v.cost(id) + best
		}

		if total := longest(n.ID); total > src.Interval() {
			v.report.add(SeverityWarning, CodePathBudget, n.ID,
				"longest path after %s takes %s, longer than its %s interval; messages may pile up",
				n.DisplayTitle(), total, src.Interval())
		}
	}
}

func (v *validation) checkEndpoints() {
	for _, c := range v.store.Connections(v.ctx) {
		from, okFrom := v.store.Node(v.ctx, c.FromNodeID)
		to, okTo := v.store.Node(v.ctx, c.ToNodeID)
		if !okFrom || !okTo {
			v.report.add(SeverityError, CodeDanglingEndpoint, "", "connection %s references a missing node", c)
			continue
		}
		if !from.HasOutput(c.FromPortID) {
			v.report.add(SeverityError, CodeUnknownPort, from.ID, "connection %s leaves from unknown output %q of %s", c, c.FromPortID, from.DisplayTitle())
		}
		if !to.HasInput(c.ToPortID) {
			v.report.add(SeverityError, CodeUnknownPort, to.ID, "connection %s enters unknown input %q of %s", c, c.ToPortID, to.DisplayTitle())
		}
	}
}

// checkCycles warns about the first cycle found; cycles are legal but may
// loop forever.
func (v *validation) checkCycles() {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) string
	visit = func(id string) string {
		if permanent[id] {
			return ""
		}
		if temporary[id] {
			return id
		}
		temporary[id] = true
		for _, next := range v.targets(id) {
			if found := visit(next); found != "" {
				return found
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return ""
	}

	for _, n := range v.nodes {
		if found := visit(n.ID); found != "" {
			v.report.add(SeverityWarning, CodeCycle, found, "graph contains a cycle through node '%s'; it may loop forever", found)
			return
		}
	}
}
