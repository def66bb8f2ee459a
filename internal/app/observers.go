package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/nodes"
)

// logObserver reports propagation events through the context logger. The
// executor logs lifecycle transitions itself.
func logObserver(ctx context.Context, ev executor.Event) {
	logger := ctxlog.FromContext(ctx)
	switch ev.Type {
	case executor.EventNodeActivated:
		logger.Debug("Node activated.", "node", ev.NodeID, "kind", ev.Kind, "message", ev.Message.ID())
	case executor.EventMessageCompleted:
		logger.Info("🏁 Message completed.", "node", ev.NodeID, "path", ev.Message.Path(), "branch", ev.Message.BranchID())
	case executor.EventNodeFailed:
		logger.Warn("Node failed.", "node", ev.NodeID, "kind", ev.Kind, "error", ev.Err)
	case executor.EventValidationFailed:
		for _, f := range ev.Findings {
			logger.Warn("Validation finding.", "severity", f.Severity, "code", f.Code, "node", f.NodeID, "message", f.Message)
		}
	}
}

// terminalBell rings the terminal bell for bell nodes.
type terminalBell struct {
	mu sync.Mutex
	w  io.Writer
}

func (b *terminalBell) Notify(ctx context.Context, c nodes.Chime) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ctxlog.FromContext(ctx).Info("🔔 Bell.", "node", c.NodeID, "sound", c.Sound, "volume", c.Volume, "duration", c.Duration)
	_, err := fmt.Fprint(b.w, "\a")
	return err
}
