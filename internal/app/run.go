package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/inmemorystore"
	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/socketsink"
	"github.com/vk/flowgrid/internal/validator"
)

// Run loads the graph, executes it once and waits until it completes, the
// configured timeout passes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	logger := a.logger
	logger.Debug("App.Run method started.")

	if err := a.healthCheckServer(); err != nil {
		return err
	}
	defer a.closeHealthCheckServer()

	store, err := a.loader.Load(ctx, a.config.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	if len(store.Nodes(ctx)) == 0 {
		logger.Warn("No nodes found in graph, execution not required.", "path", a.config.GraphPath)
		return nil
	}

	behaviors, err := nodes.Instantiate(ctx, a.registry, store)
	if err != nil {
		return fmt.Errorf("failed to configure nodes: %w", err)
	}

	rs := inmemorystore.New()
	a.setRunState(rs)

	opts := []executor.Option{
		executor.WithSpeed(a.config.Speed),
		executor.WithTickInterval(a.config.TickInterval),
		executor.WithTransitDelay(a.config.TransitDelay),
		executor.WithValidatorOptions(validator.Options{
			TimerOrdering:     a.config.StrictTimers,
			AllowMultipleEnds: a.config.MultipleEnds,
		}),
		executor.WithRunState(rs),
		executor.WithNotifier(&terminalBell{w: a.outW}),
		executor.WithObserver(executor.ObserverFunc(logObserver)),
		executor.WithObserver(metrics.New(a.metrics)),
	}
	if a.config.Seed != 0 {
		opts = append(opts, executor.WithRand(rand.New(rand.NewPCG(a.config.Seed, a.config.Seed))))
	}
	if a.config.SocketURL != "" {
		sink, err := socketsink.Dial(ctx, socketsink.Config{
			URL:                a.config.SocketURL,
			Namespace:          a.config.SocketNamespace,
			InsecureSkipVerify: a.config.SocketInsecure,
		})
		if err != nil {
			logger.Warn("Event feed unavailable, continuing without it.", "error", err)
		} else {
			defer sink.Close()
			opts = append(opts, executor.WithObserver(sink))
		}
	}
	opts = append(opts, a.execOpts...)

	ex := executor.New(store, behaviors, opts...)
	defer func() {
		if ex.Status() != executor.StatusCompleted {
			ex.Stop()
		}
	}()

	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	logger.Info("🚀 Starting run...", "nodes", len(behaviors), "speed", a.config.Speed)
	if err := ex.Start(ctx); err != nil {
		return fmt.Errorf("graph is invalid: %w", err)
	}
	if err := ex.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("run did not complete within %s: %w", a.config.Timeout, err)
		}
		return fmt.Errorf("run interrupted: %w", err)
	}
	if ex.Status() != executor.StatusCompleted {
		return errors.New("run was stopped before completion")
	}

	logger.Info("🏁 Execution finished.", "messages", ex.Completed())
	logger.Debug("App.Run method finished.")
	return nil
}
