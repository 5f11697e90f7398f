package synth

import "sync"

// Controller coordinates pause/resume/stop signals for one tracking session.
// While paused, the synthesizer discards incoming hardware events after
// flushing whatever it had buffered.
type Controller struct {
	mu       sync.Mutex
	paused   bool
	stopping bool
	stopErr  error
	done     chan struct{}
}

// NewController constructs a controller in the running state.
func NewController() *Controller {
	return &Controller{done: make(chan struct{})}
}

// Pause suspends observation without tearing down the event stream.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume clears a paused state.
func (c *Controller) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether observation is suspended.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stop ends the tracking session, recording an optional cause. Safe to call
// more than once; only the first cause is kept.
func (c *Controller) Stop(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		return
	}
	c.stopping = true
	c.stopErr = err
	close(c.done)
}

// Done is closed once the session is stopping.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the recorded stop cause, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopErr
}

// State reports the textual state for diagnostics.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.stopping:
		return "stopping"
	case c.paused:
		return "paused"
	default:
		return "running"
	}
}
