package nodes

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/flowgrid/internal/expr"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
)

// Decision routes a message to "yes" or "no".
type Decision struct {
	base
	mode       string
	keyA       string
	comparator string
	keyB       string
	expression *expr.Expression
}

var comparators = []string{"==", "!=", "<", ">", "<=", ">="}

func newDecision(p graph.Properties) (Behavior, error) {
	d := &Decision{
		base:       base{KindDecision},
		mode:       p.String("mode", "compare"),
		keyA:       p.String("keyA", "a"),
		comparator: p.String("comparator", "=="),
		keyB:       p.String("keyB", "0"),
	}
	switch d.mode {
	case "compare":
		if !slices.Contains(comparators, d.comparator) {
			return nil, fmt.Errorf("unknown comparator %q", d.comparator)
		}
	case "expression":
		e, err := expr.Compile(p.String("expression", "true"))
		if err != nil {
			return nil, err
		}
		d.expression = e
	default:
		return nil, fmt.Errorf("unknown mode %q", d.mode)
	}
	return d, nil
}

func (d *Decision) Process(ctx context.Context, in Input) (*Effect, error) {
	var (
		result bool
		text   string
	)
	if d.expression != nil {
		text = d.expression.String()
		// An expression that cannot be evaluated takes the "no" path.
		result, _ = d.expression.Evaluate(in.Message.Payload())
	} else {
		a, _ := in.Message.Value(d.keyA)
		var b any = d.keyB
		if v, ok := in.Message.Value(d.keyB); ok {
			b = v
		}
		result = Compare(a, d.comparator, b)
		text = fmt.Sprintf("%s(%v) %s %s(%v)", d.keyA, a, d.comparator, d.keyB, b)
	}

	port := graph.PortNo
	if result {
		port = graph.PortYes
	}
	msg := stamp(in).WithPayload(map[string]any{
		"_decision_" + in.Node.ID: map[string]any{
			"expression": text,
			"result":     result,
			"takenPath":  port,
		},
	})
	return forward(msg, port), nil
}

// Compare applies comparator to a and b. Operands that both read as numbers
// compare numerically; otherwise their string forms are compared. A missing
// left operand satisfies only "!=".
func Compare(a any, comparator string, b any) bool {
	if a == nil {
		return comparator == "!="
	}
	fa, okA := graph.ToFloat(a)
	fb, okB := graph.ToFloat(b)
	if okA && okB {
		switch comparator {
		case "==":
			return fa == fb
		case "!=":
			return fa != fb
		case "<":
			return fa < fb
		case ">":
			return fa > fb
		case "<=":
			return fa <= fb
		case ">=":
			return fa >= fb
		}
		return false
	}

	c := strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	switch comparator {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case ">":
		return c > 0
	case "<=":
		return c <= 0
	case ">=":
		return c >= 0
	}
	return false
}

// Splitter duplicates a message across all its outgoing connections, or
// sends it down one of them at random.
type Splitter struct {
	base
	random bool
}

func newSplitter(p graph.Properties) (Behavior, error) {
	switch mode := p.String("mode", "all"); mode {
	case "all":
		return &Splitter{base: base{KindSplitter}}, nil
	case "random":
		return &Splitter{base: base{KindSplitter}, random: true}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

func (s *Splitter) Process(ctx context.Context, in Input) (*Effect, error) {
	return &Effect{
		Message:    stamp(in),
		OutputPort: graph.PortOutput,
		Fork:       !s.random,
		Random:     s.random,
	}, nil
}

// Gate joins one message from its trigger port with one from its data port.
type Gate struct{ base }

func newGate(graph.Properties) (Behavior, error) { return &Gate{base{KindGate}}, nil }

func (g *Gate) Process(ctx context.Context, in Input) (*Effect, error) {
	st := in.State
	msg := in.Message

	st.mu.Lock()
	if g.slot(in) == graph.PortTrigger {
		st.trigger = &msg
	} else {
		st.data = &msg
	}
	if st.trigger == nil || st.data == nil {
		st.mu.Unlock()
		return nil, nil
	}
	trigger, data := *st.trigger, *st.data
	st.trigger, st.data = nil, nil
	st.mu.Unlock()

	merged, _ := message.MergeAt([]message.Message{trigger, data}, in.Node.ID, in.Env.now())
	out := merged.WithPath(in.Node.ID).WithPayload(map[string]any{
		"_gate_" + in.Node.ID: map[string]any{
			"triggeredAt": in.Env.nowMillis(),
			"mergedFrom":  []string{trigger.ID(), data.ID()},
		},
	})
	return forward(out, graph.PortOutput), nil
}

// slot picks the port a message arrived on. When the engine does not know,
// a message whose path visited a node wired to the trigger port is a trigger.
func (g *Gate) slot(in Input) string {
	switch in.Port {
	case graph.PortTrigger, graph.PortData:
		return in.Port
	}
	for _, c := range in.Incoming {
		if c.ToPortID == graph.PortTrigger && in.Message.Visited(c.FromNodeID) {
			return graph.PortTrigger
		}
	}
	return graph.PortData
}

// AwaitAll buffers arrivals until every incoming connection has delivered.
type AwaitAll struct{ base }

func newAwaitAll(graph.Properties) (Behavior, error) { return &AwaitAll{base{KindAwaitAll}}, nil }

func (a *AwaitAll) Process(ctx context.Context, in Input) (*Effect, error) {
	st := in.State

	st.mu.Lock()
	st.arrived = append(st.arrived, in.Message)
	if len(st.arrived) < max(st.expected, 1) {
		st.mu.Unlock()
		return nil, nil
	}
	arrived := st.arrived
	st.arrived = nil
	st.mu.Unlock()

	ids := make([]string, len(arrived))
	for i, m := range arrived {
		ids[i] = m.ID()
	}
	merged, _ := message.MergeAt(arrived, in.Node.ID, in.Env.now())
	out := merged.WithPath(in.Node.ID).WithPayload(map[string]any{
		"_awaitAll_" + in.Node.ID: map[string]any{
			"arrivedCount": len(arrived),
			"mergedFrom":   ids,
		},
	})
	return forward(out, graph.PortOutput), nil
}

// Buffer holds messages until it is full, then releases them in FIFO
// (queue) or LIFO (stack) order.
type Buffer struct {
	base
	size  int
	order ReleaseOrder
	mode  ReleaseMode
}

func newBuffer(kind Kind, order ReleaseOrder) func(graph.Properties) (Behavior, error) {
	return func(p graph.Properties) (Behavior, error) {
		size := p.Int("size", 5)
		if size < 1 {
			return nil, fmt.Errorf("size must be at least 1, got %d", size)
		}
		mode := ReleaseMode(p.String("releaseMode", string(ReleaseAll)))
		if mode != ReleaseAll && mode != ReleaseOne {
			return nil, fmt.Errorf("unknown releaseMode %q", mode)
		}
		return &Buffer{base: base{kind}, size: size, order: order, mode: mode}, nil
	}
}

func (b *Buffer) Process(ctx context.Context, in Input) (*Effect, error) {
	st := in.State
	msg := stamp(in)

	st.mu.Lock()
	st.held = append(st.held, msg)
	if len(st.held) < b.size {
		st.mu.Unlock()
		return nil, nil
	}
	held := st.held
	st.held = nil
	st.mu.Unlock()

	if b.order == LIFO {
		slices.Reverse(held)
	}
	return &Effect{
		Message:    msg,
		OutputPort: graph.PortOutput,
		Hold:       &Hold{Capacity: b.size, Order: b.order, Mode: b.mode, Messages: held},
	}, nil
}
