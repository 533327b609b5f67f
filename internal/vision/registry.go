package vision

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// NativeName is the backend used when none is configured.
const NativeName = "native"

var (
	mu       sync.RWMutex
	backends = map[string]func() rectify.Vision{
		NativeName: func() rectify.Vision { return Native{} },
	}
)

// register makes a backend available under name. Backends that depend on
// optional build tags call it from init.
func register(name string, factory func() rectify.Vision) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = factory
}

// New returns the backend registered under name. An empty name selects the
// native backend.
func New(name string) (rectify.Vision, error) {
	if name == "" {
		name = NativeName
	}
	mu.RLock()
	factory, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown vision backend %q (available: %v)", name, Available())
	}
	return factory(), nil
}

// Available lists the registered backend names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
