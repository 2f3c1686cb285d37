// Package correlation tracks the identifier that ties one logical chain of requests together.
package correlation

import (
	"sync"

	"github.com/google/uuid"
)

// Header carries the correlation id on outgoing requests.
const Header = "X-Correlation-ID"

// Context holds at most one correlation id at a time. The zero value is ready to use.
type Context struct {
	mu      sync.Mutex
	current string
	newID   func() string
}

// New returns an empty Context.
func New() *Context {
	return &Context{}
}

// Get returns the current id or "" when none is active.
func (c *Context) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Ensure returns the current id, creating one if none is active.
func (c *Context) Ensure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		c.current = c.generate()
	}
	return c.current
}

// Begin starts a new chain and returns its id.
func (c *Context) Begin() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.generate()
	return c.current
}

// Clear drops the current id. Called on logout.
func (c *Context) Clear() {
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}

func (c *Context) generate() string {
	if c.newID != nil {
		return c.newID()
	}
	return uuid.NewString()
}
