package elab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/hdlelab/internal/ir"
)

// drain runs jobs until none are left or ctx is canceled.
func (m *Manager) drain(ctx context.Context, log *slog.Logger) error {
	if m.threads <= 1 {
		return m.drainSerial(ctx, log)
	}
	return m.drainParallel(ctx, log)
}

// drainSerial pops jobs LIFO in the calling goroutine. Cancellation is
// checked before every pop.
func (m *Manager) drainSerial(ctx context.Context, log *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			n := m.dropQueued()
			log.Info("build canceled", "dropped", n)
			return err
		}
		j, ok := m.queue.TryPop()
		if !ok {
			return nil
		}
		m.runJob(ctx, j, log)
	}
}

// drainParallel runs jobs FIFO on a fixed worker pool. The calling
// goroutine polls for completion and cancellation every pollInterval. On
// cancellation queued jobs are dropped at once; running jobs see the
// canceled ctx. Either way the wait for workers is bounded by
// shutdownTimeout.
func (m *Manager) drainParallel(ctx context.Context, log *slog.Logger) error {
	stopCtx, stop := context.WithCancel(context.Background())
	defer stop()

	var g errgroup.Group
	for i := 0; i < m.threads; i++ {
		id := i
		g.Go(func() error {
			m.worker(ctx, stopCtx, id, log)
			return nil
		})
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	canceled := false
wait:
	for m.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			canceled = true
			n := m.dropQueued()
			log.Info("build canceled", "dropped", n)
			break wait
		case <-ticker.C:
			log.Debug("waiting for jobs", "todo", m.pending.Load())
		}
	}
	stop()

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(m.shutdownTimeout):
		return errorf(ErrCodeShutdown, ir.Location{}, "workers still running after %s", m.shutdownTimeout)
	}

	if canceled {
		return ctx.Err()
	}
	return nil
}

// worker runs jobs until stop is canceled.
func (m *Manager) worker(ctx, stop context.Context, id int, log *slog.Logger) {
	log = log.With("worker", id)
	log.Debug("worker started")
	for {
		if j, ok := m.queue.TryDequeue(); ok {
			m.runJob(ctx, j, log)
			continue
		}
		select {
		case <-stop.Done():
			log.Debug("worker finished")
			return
		case <-m.queue.Wait():
		}
	}
}

// dropQueued removes every queued job and releases its todo entry.
func (m *Manager) dropQueued() int {
	dropped := m.queue.Clear()
	for _, j := range dropped {
		m.release(j)
	}
	return len(dropped)
}

// release marks j as no longer queued or running.
func (m *Manager) release(j *job) {
	m.mu.Lock()
	delete(m.todo, j.req.Signature)
	m.mu.Unlock()
	m.pending.Add(-1)
	m.metrics.JobsPending.Dec()
}

func (m *Manager) markFailed(j *job) {
	m.mu.Lock()
	m.failed[j.req.Signature] = struct{}{}
	m.mu.Unlock()
}

// runJob elaborates the statements of one module. Failures, including
// panics, become diagnostics; the job always counts as done.
func (m *Manager) runJob(ctx context.Context, j *job, log *slog.Logger) {
	defer m.release(j)
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.markFailed(j)
			m.metrics.JobFailures.Inc()
			err := fmt.Errorf("internal error elaborating %s: %v", j.req.Signature, r)
			m.report.AddError(err, j.req.Location)
			log.Error("job panicked", "signature", j.req.Signature, "panic", r)
		}
	}()

	m.jobsRun.Add(1)
	m.metrics.JobsRun.Inc()

	err := m.buildModule(ctx, j.req, log)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.Debug("job interrupted", "signature", j.req.Signature)
		return
	}
	if err != nil {
		m.markFailed(j)
		m.metrics.JobFailures.Inc()
		// Resolution errors are reported where they are detected.
		if !IsResolutionError(err) {
			m.report.AddError(err, j.req.Location)
		}
		log.Error("elaboration failed",
			"signature", j.req.Signature,
			"unit", j.req.Unit.UID(),
			"error", err,
		)
	}

	done := m.done.Add(1)
	log.Info("modules done", "done", done, "todo", m.pending.Load()-1, "path", j.req.Path)
}

// buildModule re-enters GetOrCreateModule, then elaborates and persists
// the module's statements.
func (m *Manager) buildModule(ctx context.Context, req ModuleRequest, log *slog.Logger) error {
	req.Elaborate = false
	mod, err := m.GetOrCreateModule(ctx, req)
	if err != nil {
		return err
	}
	if mod.StatementsElaborated {
		log.Debug("module already elaborated", "signature", req.Signature)
		return nil
	}

	root, err := m.elaborateStatements(ctx, mod)
	if err != nil {
		return err
	}
	mod.Root = root
	mod.StatementsElaborated = true
	if err := m.store.UpdateModule(ctx, mod); err != nil {
		return fmt.Errorf("update module %s: %w", req.Signature, err)
	}

	if m.indexing {
		if err := m.index(ctx, mod); err != nil {
			return fmt.Errorf("index module %s: %w", req.Signature, err)
		}
	}
	return nil
}
