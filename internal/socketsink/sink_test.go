package socketsink_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/message"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/socketsink"
	"github.com/vk/flowgrid/internal/testutil"
	"github.com/vk/flowgrid/internal/validator"
)

type fakeEmitter struct {
	mu        sync.Mutex
	connected bool
	err       error
	emitted   []map[string]any
	names     []string
}

func (f *fakeEmitter) Emit(ev string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, ev)
	if len(args) > 0 {
		f.emitted = append(f.emitted, args[0].(map[string]any))
	}
	return f.err
}

func (f *fakeEmitter) Connected() bool { return f.connected }

func TestSink_EmitsEncodedEvents(t *testing.T) {
	fe := &fakeEmitter{connected: true}
	closed := false
	s := socketsink.NewSink(fe, func() { closed = true })

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	msg := message.NewAt("s", map[string]any{"n": 1}, at).WithPath("s")
	s.OnEvent(context.Background(), executor.Event{
		Type:    executor.EventNodeActivated,
		Time:    at,
		NodeID:  "s",
		Kind:    nodes.KindStart,
		Message: msg,
	})

	require.Len(t, fe.emitted, 1)
	assert.Equal(t, []string{socketsink.EventName}, fe.names)
	body := fe.emitted[0]
	assert.Equal(t, "nodeActivated", body["type"])
	assert.Equal(t, "2026-03-04T05:06:07Z", body["time"])
	assert.Equal(t, "s", body["nodeId"])
	assert.Equal(t, "start", body["kind"])
	m := body["message"].(map[string]any)
	assert.Equal(t, msg.ID(), m["id"])
	assert.Equal(t, []string{"s"}, m["path"])
	assert.Equal(t, map[string]any{"n": 1}, m["payload"])

	require.NoError(t, s.Close())
	assert.True(t, closed)
}

func TestSink_EmitFailureIsLogged(t *testing.T) {
	var buf testutil.SafeBuffer
	ctx := testutil.Context(t, &buf)
	fe := &fakeEmitter{err: errors.New("socket closed")}
	s := socketsink.NewSink(fe, nil)

	assert.NotPanics(t, func() {
		s.OnEvent(ctx, executor.Event{Type: executor.EventStarted})
	})
	assert.Contains(t, buf.String(), "Failed to emit event.")
	assert.Contains(t, buf.String(), "socket closed")
	assert.NoError(t, s.Close())
}

func TestEncode_IsJSONCompatible(t *testing.T) {
	ev := executor.Event{
		Type: executor.EventValidationFailed,
		Time: time.Unix(0, 0),
		Findings: []validator.Finding{
			{Severity: validator.SeverityError, Code: validator.CodeNoSink, Message: "graph must have an end node"},
		},
		Err: errors.New("boom"),
	}

	body := socketsink.Encode(ev)
	_, hasNode := body["nodeId"]
	assert.False(t, hasNode)
	_, hasMessage := body["message"]
	assert.False(t, hasMessage)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "validationFailed",
		"time": "1970-01-01T00:00:00Z",
		"findings": [{"severity": "error", "code": "no-sink", "message": "graph must have an end node", "nodeId": ""}],
		"error": "boom"
	}`, string(raw))
}

func TestDial_RejectsBadURL(t *testing.T) {
	_, err := socketsink.Dial(context.Background(), socketsink.Config{URL: "not a url"})
	require.Error(t, err)
}
