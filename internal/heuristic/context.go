package heuristic

import "sync"

// DefaultHistorySize bounds per-matcher identity history.
const DefaultHistorySize = 100_000

// Context carries matcher-private correlation state across records. A
// single Context must see records in arrival order for stateful matchers
// to be meaningful. It is safe for concurrent use; custom matchers run
// with the context locked.
type Context struct {
	mu          sync.Mutex
	historySize int
	state       map[string]any
}

// NewContext returns an empty Context. historySize bounds the entries a
// stateful matcher may retain, values <= 0 select DefaultHistorySize.
func NewContext(historySize int) *Context {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Context{
		historySize: historySize,
		state:       make(map[string]any),
	}
}

// HistorySize returns the retention bound given to stateful matchers.
func (c *Context) HistorySize() int { return c.historySize }

// State returns the state stored under key, creating it with init on
// first use. Only valid while the context is locked, i.e. from inside a
// MatcherFunc.
func (c *Context) State(key string, init func() any) any {
	v, ok := c.state[key]
	if !ok {
		v = init()
		c.state[key] = v
	}
	return v
}

// Reset discards all matcher state.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.state)
}

func (c *Context) run(fn func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}
