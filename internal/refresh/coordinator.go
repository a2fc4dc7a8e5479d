// Package refresh drives click-to-refresh cycles against a TitleSource.
//
// A Coordinator owns a cancellable work scope. Each refresh request runs
// in that scope, flips the busy flag around the source's Refresh call and
// turns a declared *Error into a one-shot message. Any other error is
// fatal to the scope: it is reported to the fatal handler, cancels the
// remaining cycles and is returned from Wait.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/headline/internal/debuglog"
)

// Error is the declared failure of a refresh. Message is shown to the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TitleSource publishes a title and knows how to refresh it.
//
// Refresh delivers the new title through the subscription, not through its
// return value. It returns *Error for failures the user should see and the
// context error when cancelled.
type TitleSource interface {
	Title() string
	Subscribe(fn func(title string)) (cancel func())
	Refresh(ctx context.Context) error
}

type Option func(*Coordinator)

// WithParent ties the work scope to ctx.
func WithParent(ctx context.Context) Option {
	return func(c *Coordinator) {
		c.parent = ctx
	}
}

// WithFatalHandler is called once with the first undeclared refresh error.
func WithFatalHandler(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onFatal = fn
	}
}

type Coordinator struct {
	source  TitleSource
	parent  context.Context
	onFatal func(error)

	group       *errgroup.Group
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu       sync.Mutex
	disposed bool
	title    string
	busy     bool
	fatal    error
	message  OneShot[string]
	changes  chan struct{}
}

// New creates a Coordinator and starts mirroring the source's title.
func New(source TitleSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:  source,
		parent:  context.Background(),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	scope, cancel := context.WithCancel(c.parent)
	c.group, c.ctx = errgroup.WithContext(scope)
	c.cancel = cancel

	// Subscribe before the initial read so no publish falls in between.
	c.unsubscribe = source.Subscribe(c.setTitle)
	c.mu.Lock()
	c.title = source.Title()
	c.mu.Unlock()

	return c
}

// RequestRefresh starts a refresh cycle. Overlapping requests are not
// merged; each one runs its own cycle. It returns false once the work
// scope has been disposed or has failed.
func (c *Coordinator) RequestRefresh() bool {
	c.mu.Lock()
	if c.disposed || c.ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.busy = true
	c.notifyLocked()
	c.mu.Unlock()

	c.group.Go(c.runCycle)
	return true
}

func (c *Coordinator) runCycle() error {
	defer c.update(func() { c.busy = false })

	debuglog.Debugf("refresh: cycle started")
	err := c.source.Refresh(c.ctx)

	var declared *Error
	switch {
	case err == nil:
		debuglog.Debugf("refresh: cycle finished")
		return nil
	case errors.As(err, &declared):
		debuglog.Warnf("refresh: %v", declared)
		c.update(func() { c.message.Set(declared.Message) })
		return nil
	case c.ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		debuglog.Debugf("refresh: cycle cancelled")
		return nil
	default:
		debuglog.Errorf("refresh: unexpected error: %v", err)
		c.fail(err)
		return err
	}
}

func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	if c.disposed || c.fatal != nil {
		c.mu.Unlock()
		return
	}
	c.fatal = err
	handler := c.onFatal
	c.notifyLocked()
	c.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

func (c *Coordinator) setTitle(title string) {
	c.update(func() { c.title = title })
}

// update applies fn unless the coordinator has been disposed.
func (c *Coordinator) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	fn()
	c.notifyLocked()
}

func (c *Coordinator) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// CurrentTitle returns the latest title published by the source.
func (c *Coordinator) CurrentTitle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// IsBusy reports whether a refresh cycle is in flight. With overlapping
// cycles the last cycle to write the flag wins.
func (c *Coordinator) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// TakeMessage returns the pending user message and clears it.
func (c *Coordinator) TakeMessage() (string, bool) {
	return c.message.Take()
}

// Changes signals that some observable state may have changed. Signals are
// coalesced. The channel is closed by Dispose.
func (c *Coordinator) Changes() <-chan struct{} {
	return c.changes
}

// Err returns the first undeclared refresh error, if any.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// Wait blocks until every launched cycle has returned and reports the
// first undeclared error. The work scope is closed once Wait returns.
func (c *Coordinator) Wait() error {
	return c.group.Wait()
}

// Dispose cancels all in-flight cycles and stops following the source.
// Nothing a cancelled cycle does afterwards is observable. It is safe to
// call more than once.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	close(c.changes)
	c.mu.Unlock()

	c.cancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	debuglog.Debugf("refresh: coordinator disposed")
}
