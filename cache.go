package migrate

import "sync"

// ProgramCache stores compiled expression programs keyed by expression
// strings, so rewrite plans resolving many documents compile each expression
// once.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewMemoryProgramCache returns a ProgramCache backed by a sync.Map, safe for
// concurrent resolutions sharing one rewriter.
func NewMemoryProgramCache() ProgramCache {
	return &memoryProgramCache{}
}

type memoryProgramCache struct {
	entries sync.Map
}

func (c *memoryProgramCache) Get(key string) (any, bool) {
	return c.entries.Load(key)
}

func (c *memoryProgramCache) Set(key string, value any) {
	c.entries.Store(key, value)
}
