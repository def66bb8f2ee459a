package nodes

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
)

// seed returns the message a data node works on. Data nodes with nothing
// wired into them are fired by the engine with a zero message; they then
// originate one.
func seed(in Input) message.Message {
	if in.Message.IsZero() {
		return message.NewAt(in.Node.ID, nil, in.Env.now()).WithPath(in.Node.ID)
	}
	return stamp(in)
}

// numberValue keeps integral results integral.
func numberValue(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// Counter adds an incrementing number to each message.
type Counter struct {
	base
	name  string
	start float64
	step  float64
}

func newCounter(p graph.Properties) (Behavior, error) {
	return &Counter{
		base:  base{KindCounter},
		name:  p.String("name", "count"),
		start: p.Float("start", 0),
		step:  p.Float("step", 1),
	}, nil
}

func (c *Counter) Process(ctx context.Context, in Input) (*Effect, error) {
	st := in.State
	st.mu.Lock()
	if st.hasCounter {
		st.counter += c.step
	} else {
		st.counter, st.hasCounter = c.start, true
	}
	v := numberValue(st.counter)
	st.lastValue = v
	st.mu.Unlock()

	return forward(stamp(in).WithPayload(map[string]any{c.name: v}), graph.PortOutput), nil
}

// Calculate applies an arithmetic operator to two payload values.
type Calculate struct {
	base
	operator  string
	inputA    string
	inputB    string
	outputKey string
}

func newCalculate(p graph.Properties) (Behavior, error) {
	c := &Calculate{
		base:      base{KindCalculate},
		operator:  p.String("operator", "+"),
		inputA:    p.String("inputA", "a"),
		inputB:    p.String("inputB", "b"),
		outputKey: p.String("outputKey", "result"),
	}
	if _, err := Calc(c.operator, 0, 1); err != nil {
		return nil, err
	}
	return c, nil
}

// Calc evaluates a op b. Division and modulo by zero yield zero.
func Calc(op string, a, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, nil
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, nil
		}
		return math.Mod(a, b), nil
	case "^":
		return math.Pow(a, b), nil
	}
	return 0, fmt.Errorf("unknown operator %q", op)
}

func (c *Calculate) Process(ctx context.Context, in Input) (*Effect, error) {
	a := c.operand(in.Message, c.inputA)
	b := c.operand(in.Message, c.inputB)
	r, err := Calc(c.operator, a, b)
	if err != nil {
		return nil, err
	}
	v := numberValue(r)
	in.State.setLastValue(v)
	return forward(stamp(in).WithPayload(map[string]any{c.outputKey: v}), graph.PortOutput), nil
}

func (c *Calculate) operand(msg message.Message, key string) float64 {
	v, ok := msg.Value(key)
	if !ok {
		return 0
	}
	f, ok := graph.ToFloat(v)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return f
}

// Constant adds a fixed or random value to each message.
type Constant struct {
	base
	name      string
	dataType  string
	value     any
	useRandom bool
	min, max  float64
}

func newConstant(p graph.Properties) (Behavior, error) {
	c := &Constant{
		base:      base{KindConstant},
		name:      p.String("name", "value"),
		dataType:  p.String("dataType", "string"),
		useRandom: p.Bool("useRandom", false),
		min:       p.Float("min", 0),
		max:       p.Float("max", 100),
	}
	switch c.dataType {
	case "number":
		c.value = numberValue(p.Float("value", 0))
	case "boolean":
		c.value = p.Bool("value", false)
	case "string":
		c.value = p.String("value", "")
	default:
		return nil, fmt.Errorf("unknown dataType %q", c.dataType)
	}
	if c.useRandom && c.max < c.min {
		return nil, fmt.Errorf("max %v is below min %v", c.max, c.min)
	}
	return c, nil
}

func (c *Constant) Process(ctx context.Context, in Input) (*Effect, error) {
	v := c.value
	if c.dataType == "number" && c.useRandom {
		lo, hi := math.Floor(c.min), math.Floor(c.max)
		v = int64(math.Floor(in.Env.float64()*(hi-lo+1)) + lo)
	}
	in.State.setLastValue(v)
	return forward(seed(in).WithPayload(map[string]any{c.name: v}), graph.PortOutput), nil
}

// EnvVar adds the value of a process environment variable to each message.
type EnvVar struct {
	base
	name string
	key  string
	def  string
}

func newEnvVar(p graph.Properties) (Behavior, error) {
	key := p.String("key", "")
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	return &EnvVar{
		base: base{KindEnv},
		name: p.String("name", key),
		key:  key,
		def:  p.String("default", ""),
	}, nil
}

func (e *EnvVar) Process(ctx context.Context, in Input) (*Effect, error) {
	lookup := in.Env.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(e.key)
	if !ok {
		v = e.def
	}
	in.State.setLastValue(v)
	return forward(seed(in).WithPayload(map[string]any{e.name: v}), graph.PortOutput), nil
}

// Log records a payload value, or the whole payload, and passes through.
type Log struct {
	base
	watchKey string
}

func newLog(p graph.Properties) (Behavior, error) {
	return &Log{base: base{KindLog}, watchKey: p.String("watchKey", "*")}, nil
}

func (l *Log) Process(ctx context.Context, in Input) (*Effect, error) {
	var v any
	if l.watchKey == "*" {
		v = in.Message.Payload()
	} else {
		v, _ = in.Message.Value(l.watchKey)
	}
	in.State.setLastValue(v)

	ctxlog.FromContext(ctx).Info("Log node.", "node", in.Node.ID, "watch", l.watchKey, "value", v)

	msg := stamp(in).WithPayload(map[string]any{
		"_log_" + in.Node.ID: map[string]any{
			"watched": l.watchKey,
			"value":   v,
			"at":      in.Env.nowMillis(),
		},
	})
	return forward(msg, graph.PortOutput), nil
}

// Bell requests an audible notification and passes through without waiting
// for it.
type Bell struct {
	base
	sound    string
	volume   float64
	duration time.Duration
}

var bellDurations = map[string]time.Duration{
	"short":  150 * time.Millisecond,
	"medium": 300 * time.Millisecond,
	"long":   600 * time.Millisecond,
}

func newBell(p graph.Properties) (Behavior, error) {
	d, ok := bellDurations[p.String("duration", "medium")]
	if !ok {
		d = bellDurations["medium"]
	}
	return &Bell{
		base:     base{KindBell},
		sound:    p.String("sound", "chime"),
		volume:   math.Min(math.Max(p.Float("volume", 70), 0), 100) / 100,
		duration: d,
	}, nil
}

func (b *Bell) Process(ctx context.Context, in Input) (*Effect, error) {
	if n := in.Env.Notifier; n != nil {
		chime := Chime{NodeID: in.Node.ID, Sound: b.sound, Volume: b.volume, Duration: b.duration}
		logger := ctxlog.FromContext(ctx)
		nctx := context.WithoutCancel(ctx)
		go func() {
			if err := n.Notify(nctx, chime); err != nil {
				logger.Warn("Bell notification failed.", "node", chime.NodeID, "error", err)
			}
		}()
	}

	msg := stamp(in).WithPayload(map[string]any{
		"_bell_" + in.Node.ID: map[string]any{
			"sound":    b.sound,
			"playedAt": in.Env.nowMillis(),
		},
	})
	return forward(msg, graph.PortOutput), nil
}
