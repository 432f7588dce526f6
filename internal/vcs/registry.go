package vcs

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor opens a backend rooted at repoRoot.
// Backends register one from an init() function in their package.
type Constructor func(repoRoot string) (VCS, error)

var (
	registry   = make(map[Type]Constructor)
	registryMu sync.RWMutex
)

// Register makes a backend available to the factory. It panics on a nil
// constructor or a duplicate type.
func Register(t Type, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if c == nil {
		panic(fmt.Sprintf("vcs: Register constructor is nil for type %s", t))
	}
	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("vcs: Register called twice for type %s", t))
	}
	registry[t] = c
}

func lookup(t Type) Constructor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[t]
}

// IsRegistered returns true if a constructor is registered for the given type.
func IsRegistered(t Type) bool {
	return lookup(t) != nil
}

// RegisteredTypes returns all registered backend types in sorted order.
func RegisteredTypes() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
