package nodes

// Kind identifies a builtin node kind. It doubles as the graph node type.
type Kind string

const (
	KindStart     Kind = "start"
	KindScheduler Kind = "scheduler"
	KindDelay     Kind = "delay"
	KindDecision  Kind = "decision"
	KindSplitter  Kind = "splitter"
	KindGate      Kind = "gate"
	KindAwaitAll  Kind = "awaitall"
	KindRepeater  Kind = "repeater"
	KindQueue     Kind = "queue"
	KindStack     Kind = "stack"
	KindCounter   Kind = "counter"
	KindCalculate Kind = "calculate"
	KindConstant  Kind = "constant"
	KindLog       Kind = "log"
	KindAction    Kind = "action"
	KindBell      Kind = "bell"
	KindEnv       Kind = "env"
	KindEnd       Kind = "end"
)

// Kinds lists every builtin kind in palette order.
var Kinds = []Kind{
	KindStart, KindScheduler, KindEnd,
	KindDelay, KindDecision, KindSplitter, KindGate, KindAwaitAll,
	KindRepeater, KindQueue, KindStack,
	KindCounter, KindCalculate, KindConstant, KindEnv, KindLog, KindAction, KindBell,
}

// IsSource reports whether the kind originates messages (an entry point).
func (k Kind) IsSource() bool { return k == KindStart || k == KindScheduler }

// IsSink reports whether the kind terminates messages.
func (k Kind) IsSink() bool { return k == KindEnd }

// IsDataSource reports whether the kind can produce a message on its own when
// nothing is wired into it.
func (k Kind) IsDataSource() bool { return k == KindConstant || k == KindEnv }

// RequiresInput reports whether every declared input port must be connected.
func (k Kind) RequiresInput() bool { return !k.IsSource() && !k.IsDataSource() }

// AllowsFanIn reports whether one input port may have several incoming
// connections.
func (k Kind) AllowsFanIn() bool { return k == KindAwaitAll }

// AllowsFanOut reports whether one output port may have several outgoing
// connections.
func (k Kind) AllowsFanOut() bool { return k == KindSplitter }

// IsBranchOrMerge reports whether the kind only routes or joins messages and
// so adds no processing time to a path.
func (k Kind) IsBranchOrMerge() bool {
	switch k {
	case KindDecision, KindSplitter, KindGate, KindAwaitAll:
		return true
	}
	return false
}
