package flowgrid

import (
	"context"
	"errors"
	"sync"
)

// Runner executes one workflow graph at a time on a background
// goroutine, with cooperative stop. It exists for hosts that drive a
// workflow from an event loop (an editor's "run" button, a tray app)
// and cannot block in Executor.Run.
//
// Typical usage:
//
//	runner := flowgrid.NewRunner(flowgrid.ExecutorConfig{Runtime: rt})
//	if err := runner.Start(ctx, g); err != nil {
//	    log.Fatal(err)
//	}
//	...
//	runner.Stop()
//	run, err := runner.Wait()
//
// The runner executes a deep copy of the supplied graph, so the caller
// may keep mutating the original (re-wiring nodes in an editor) while a
// run is in flight.
type Runner struct {
	exec *Executor

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	run     *Context
	err     error
}

// NewRunner constructs a Runner whose runs use the given executor
// configuration.
func NewRunner(cfg ExecutorConfig) *Runner {
	return &Runner{exec: NewExecutor(cfg)}
}

// Start begins executing a copy of g in the background. It returns
// immediately; the run's outcome is retrieved with Wait.
//
// If a run is already in flight, Start returns an error.
func (r *Runner) Start(ctx context.Context, g *Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("flowgrid: runner already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.run = nil
	r.err = nil

	snapshot := g.Copy()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		run, err := r.exec.Run(ctx, snapshot)

		r.mu.Lock()
		r.run = run
		r.err = err
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	return nil
}

// Stop cancels the in-flight run, if any, and waits for its goroutine
// to exit. Stopping an idle runner is a no-op. The cancelled run's
// outcome remains available through Wait.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Wait blocks until the current run finishes and returns its outcome:
// the run context on success, or nil and the run's error. Calling Wait
// on an idle runner returns the previous run's outcome immediately.
func (r *Runner) Wait() (*Context, error) {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run, r.err
}

// IsRunning reports whether a run is currently in flight.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
