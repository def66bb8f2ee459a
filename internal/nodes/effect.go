package nodes

import (
	"time"

	"github.com/vk/flowgrid/internal/message"
)

// MinRepeatSpacing is the smallest interval between two repeated forwards.
const MinRepeatSpacing = 100 * time.Millisecond

// Effect is the result of processing one message.
type Effect struct {
	// Message is the message to forward, already stamped with the node id.
	Message message.Message
	// OutputPort is the port to forward on. Empty means the message reached
	// a sink and propagation of this branch ends.
	OutputPort string
	// Delay holds the effect back for this long before forwarding.
	Delay time.Duration
	// Fork duplicates the message across every connection of OutputPort,
	// each copy forked with its branch index.
	Fork bool
	// Random forwards to exactly one connection of OutputPort, chosen at random.
	Random bool
	// Repeat forwards the message Count times, each as a fresh fork.
	Repeat *Repeat
	// Hold releases a batch of buffered messages instead of Message.
	Hold *Hold
}

// Terminal reports whether the effect ends propagation of its branch.
func (e *Effect) Terminal() bool { return e.OutputPort == "" }

// Repeat configures repeated forwarding.
type Repeat struct {
	Count int
	Delay time.Duration
}

// Spacing returns the interval between two repeats.
func (r Repeat) Spacing() time.Duration { return max(r.Delay, MinRepeatSpacing) }

// Duration returns the time from the first to the last repeat.
func (r Repeat) Duration() time.Duration {
	if r.Count <= 1 {
		return 0
	}
	return time.Duration(r.Count-1) * r.Spacing()
}

// ReleaseOrder is the order buffered messages leave a holding node.
type ReleaseOrder string

const (
	FIFO ReleaseOrder = "fifo"
	LIFO ReleaseOrder = "lifo"
)

// ReleaseMode says whether a full buffer is released at once or one message
// per spacing interval.
type ReleaseMode string

const (
	ReleaseAll ReleaseMode = "all"
	ReleaseOne ReleaseMode = "one"
)

// Hold describes a full buffer being released.
type Hold struct {
	Capacity int
	Order    ReleaseOrder
	Mode     ReleaseMode
	// Messages are in release order.
	Messages []message.Message
}

func forward(msg message.Message, port string) *Effect {
	return &Effect{Message: msg, OutputPort: port}
}
