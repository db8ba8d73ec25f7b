// Package runtime runs the shell's named background tasks (startup sequence,
// update checks, focus relay) under one cancellable root context.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wechat-desktop/internal/logging"
)

// Task is a unit of background work. It must return once ctx is done.
type Task func(ctx context.Context) error

type Controller struct {
	logger *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	ctx     context.Context
	running map[string]context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

func NewController(rootCtx context.Context, logger *logging.Logger) *Controller {
	if logger == nil {
		panic("runtime.NewController: logger must not be nil")
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(rootCtx)
	return &Controller{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		running: map[string]context.CancelFunc{},
	}
}

// Start runs task on its own goroutine. onExit, if set, receives the task's
// error after it returns. A name can only run once at a time.
func (c *Controller) Start(name string, task Task, onExit func(error)) error {
	if task == nil {
		return fmt.Errorf("task %q is nil", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return fmt.Errorf("task %q not started: runner stopped", name)
	}
	if _, ok := c.running[name]; ok {
		return fmt.Errorf("task %q is already running", name)
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.running[name] = cancel
	c.logger.Debug("background task started", logging.Field("task", name))

	c.wg.Go(func() {
		defer cancel()
		runErr := task(ctx)
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			c.logger.Debug("background task exited due to context cancellation", logging.Field("task", name), logging.Field("error", runErr))
		} else if runErr != nil {
			c.logger.Warn("background task exited with error", logging.Field("task", name), logging.Field("error", runErr))
		} else {
			c.logger.Debug("background task exited", logging.Field("task", name))
		}
		c.mu.Lock()
		delete(c.running, name)
		c.mu.Unlock()

		if onExit != nil {
			onExit(runErr)
		}
	})
	return nil
}

// Cancel stops the named task without touching the others.
func (c *Controller) Cancel(name string) {
	c.mu.Lock()
	cancel := c.running[name]
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels every task and refuses new ones.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancel
	c.mu.Unlock()
	cancel()
}

func (c *Controller) Wait(timeout time.Duration) bool {
	waitDone := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(waitDone)
	}()
	if timeout <= 0 {
		<-waitDone
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waitDone:
		return true
	case <-timer.C:
		return false
	}
}

func (c *Controller) StopAndWait(timeout time.Duration) bool {
	c.Stop()
	return c.Wait(timeout)
}

func (c *Controller) IsRunning(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[name]
	return ok
}

