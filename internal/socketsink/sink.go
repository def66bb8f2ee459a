// Package socketsink streams executor events to a socket.io server so a
// remote UI can animate a run.
package socketsink

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventName is the socket.io event every engine event is emitted as.
const EventName = "flowgrid:event"

const defaultConnectTimeout = 15 * time.Second

// Config locates the socket.io server.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// emitter is the part of *socket.Socket the sink uses.
type emitter interface {
	Emit(ev string, args ...any) error
	Connected() bool
}

// Sink is an executor.Observer that emits events over socket.io.
type Sink struct {
	client emitter
	close  func()
}

// Dial connects to the server and waits for the handshake.
func Dial(ctx context.Context, cfg Config) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("component", "socketsink", "url", cfg.URL)
	logger.Info("Connecting event feed...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("URL %q must include a scheme and host", cfg.URL)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Event feed connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})
	io.Connect()

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return newSink(io, func() { io.Disconnect() }), nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

func newSink(client emitter, closeFn func()) *Sink {
	return &Sink{client: client, close: closeFn}
}

// OnEvent implements executor.Observer. Delivery failures are logged and
// never reach the engine.
func (s *Sink) OnEvent(ctx context.Context, ev executor.Event) {
	logger := ctxlog.FromContext(ctx)
	if !s.client.Connected() {
		logger.Debug("Event feed disconnected, event buffered.", "event", ev.Type)
	}
	if err := s.client.Emit(EventName, Encode(ev)); err != nil {
		logger.Warn("Failed to emit event.", "event", ev.Type, "error", err)
	}
}

// Close disconnects from the server.
func (s *Sink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

var _ executor.Observer = (*Sink)(nil)
