package library

import "sync"

type CursorState int

const (
	CursorIdle CursorState = iota
	CursorLoading
	CursorLoaded
	CursorExhausted
	CursorFailed
)

func (s CursorState) String() string {
	switch s {
	case CursorIdle:
		return "idle"
	case CursorLoading:
		return "loading"
	case CursorLoaded:
		return "loaded"
	case CursorExhausted:
		return "exhausted"
	case CursorFailed:
		return "failed"
	}
	return "unknown"
}

// Cursor tracks the fetch offset of one browsing context.
// Only one page may be in flight: Begin refuses while Loading or Exhausted.
type Cursor struct {
	mu     sync.Mutex
	state  CursorState
	offset int
}

func NewCursor() *Cursor {
	return &Cursor{}
}

// Begin moves to Loading. It returns false when a page is already in flight
// or the context is exhausted.
func (c *Cursor) Begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CursorLoading || c.state == CursorExhausted {
		return false
	}
	c.state = CursorLoading
	return true
}

// Restart forces Loading at offset 0, whatever the current state.
func (c *Cursor) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CursorLoading
	c.offset = 0
}

// Finish ends the in-flight page. An error leaves the offset alone and moves
// to Failed, an empty page moves to Exhausted, anything else to Loaded.
func (c *Cursor) Finish(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CursorLoading {
		return
	}
	switch {
	case err != nil:
		c.state = CursorFailed
	case n == 0:
		c.state = CursorExhausted
	default:
		c.state = CursorLoaded
	}
}

func (c *Cursor) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

func (c *Cursor) SetOffset(offset int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = offset
}

func (c *Cursor) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += n
}

// Reset returns to Idle at offset 0.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = CursorIdle
	c.offset = 0
}

func (c *Cursor) State() CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasMore reports whether further pages may exist.
func (c *Cursor) HasMore() bool {
	return c.State() != CursorExhausted
}
