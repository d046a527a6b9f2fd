// Package di provides a minimal dependency injection container with
// type-safe tokens. Services register either eager instances or lazy
// providers; providers are resolved once and memoized.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, resolving a lazy
	// provider on first access. It panics when the name is unknown:
	// dependency wiring errors are programming errors.
	Get(name string) any
}

// Container is the write side: modules register their services here
// during application assembly.
type Container interface {
	ServiceRegistry

	// Register binds an eager instance to name.
	Register(name string, instance any)

	// RegisterLazy binds a provider invoked once on first Get.
	RegisterLazy(name string, provider func(ServiceRegistry) any)
}

type entry struct {
	once     sync.Once
	instance any
	provider func(ServiceRegistry) any
}

// resolve runs the provider exactly once. The container map lock is not
// held here so providers may resolve their own dependencies; a provider
// cycle deadlocks, which is a wiring bug.
func (e *entry) resolve(sr ServiceRegistry) any {
	e.once.Do(func() {
		if e.provider != nil {
			e.instance = e.provider(sr)
			e.provider = nil
		}
	})
	return e.instance
}

type container struct {
	mu       sync.RWMutex
	services map[string]*entry
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services: make(map[string]*entry),
	}
}

func (c *container) Register(name string, instance any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{instance: instance}
	e.once.Do(func() {})
	c.services[name] = e
}

func (c *container) RegisterLazy(name string, provider func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = &entry{provider: provider}
}

func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.services[name]
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	return e.resolve(c)
}

// Token is a typed handle for a registered service. The name doubles as
// the registry key, so tokens must be unique across modules.
type Token[T any] struct {
	name string
}

// NewToken creates a token for type T under the given name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key of the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a lazy provider for the token's service.
func RegisterToken[T any](c Container, tok Token[T], provider func(ServiceRegistry) T) {
	c.RegisterLazy(tok.name, func(sr ServiceRegistry) any {
		return provider(sr)
	})
}

// GetToken resolves the token's service with a checked type assertion.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	v, ok := sr.Get(tok.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type %T", tok.name, sr.Get(tok.name)))
	}
	return v
}
