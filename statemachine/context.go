package statemachine

import (
	"maps"
	"sync"
)

// MapContext is a dictionary backed context for machines that do not define a
// structured context type. Its zero value is ready to use.
//
// The run loop never touches a context concurrently. The lock only protects
// readers outside the loop, e.g. a host inspecting a running machine.
type MapContext struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewMapContext creates a context seeded with a copy of data.
func NewMapContext(data map[string]any) *MapContext {
	c := &MapContext{}
	c.Merge(data)

	return c
}

// Get retrieves a value from the context data.
func (c *MapContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.data[key]

	return val, ok
}

// Set stores a value in the context data.
func (c *MapContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		c.data = make(map[string]any)
	}

	c.data[key] = value
}

// Delete removes a key from the context data.
func (c *MapContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Len returns the number of stored keys.
func (c *MapContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// GetString retrieves a string value from the context data.
func (c *MapContext) GetString(key string) (string, bool) {
	val, ok := c.Get(key)
	if !ok {
		return "", false
	}

	str, ok := val.(string)

	return str, ok
}

// GetBool retrieves a boolean value from the context data.
func (c *MapContext) GetBool(key string) (bool, bool) {
	val, ok := c.Get(key)
	if !ok {
		return false, false
	}

	b, ok := val.(bool)

	return b, ok
}

// GetInt retrieves an integer value from the context data.
func (c *MapContext) GetInt(key string) (int, bool) {
	val, ok := c.Get(key)
	if !ok {
		return 0, false
	}

	i, ok := val.(int)

	return i, ok
}

// Merge merges a map of data into the context.
func (c *MapContext) Merge(data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		c.data = make(map[string]any, len(data))
	}

	maps.Copy(c.data, data)
}

// Snapshot returns a copy of the context data.
func (c *MapContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.data)
}

// Clone creates a copy of the context. Values are copied shallowly.
func (c *MapContext) Clone() *MapContext {
	return NewMapContext(c.Snapshot())
}
