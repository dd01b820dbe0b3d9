// Package relay dispatches capability calls to one of several backend
// protocol implementations by a fixed priority order, with a temporary
// takeover override.
//
// Which methods a backend actually implements is declared explicitly at
// registration time. Resolve consults that declaration instead of any
// runtime reflection, so a backend that merely embeds a capability's
// default implementation does not shadow a lower-priority backend that
// really implements the method.
package relay

import (
	"fmt"
	"sync"
)

// Protocol tags one backend wire protocol.
type Protocol string

type registration[T any] struct {
	instance T
	methods  map[string]bool
}

// Relay is a priority-ordered registry of backend implementations for
// one capability interface.
type Relay[T any] struct {
	surface  map[string]bool
	priority []Protocol

	mu         sync.Mutex
	registered map[Protocol]registration[T]
	takeover   Protocol
}

// New creates a relay for a capability whose method surface is the
// given closed set of method names, dispatching across priority from
// most to least preferred.
func New[T any](surface []string, priority []Protocol) *Relay[T] {
	r := &Relay[T]{
		surface:    make(map[string]bool, len(surface)),
		priority:   append([]Protocol(nil), priority...),
		registered: make(map[Protocol]registration[T]),
	}
	for _, m := range surface {
		r.surface[m] = true
	}
	return r
}

// Register adds instance as tag's implementation, declaring which of
// the capability's methods it implements. Registering a tag again
// replaces the earlier registration. A tag outside the priority order
// or a method outside the capability surface is a programming error
// and fails with ErrBadRegistration.
func (r *Relay[T]) Register(tag Protocol, instance T, methods []string) error {
	if !r.inPriority(tag) {
		return fmt.Errorf("%w: unknown protocol %q", ErrBadRegistration, tag)
	}
	set := make(map[string]bool, len(methods))
	for _, m := range methods {
		if !r.surface[m] {
			return fmt.Errorf("%w: method %q not in capability surface", ErrBadRegistration, m)
		}
		set[m] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[tag] = registration[T]{instance: instance, methods: set}
	return nil
}

// Resolve returns the implementation that answers method, walking the
// takeover tag (if set) and then the priority order. Tags without a
// registration are skipped. Fails with ErrNotSupported when no
// registered backend implements the method, and with
// ErrBadRegistration when the method is not part of the capability
// surface at all.
func (r *Relay[T]) Resolve(method string) (T, error) {
	return r.ResolveWith(method, nil)
}

// ResolveWith is Resolve with a one-off priority order replacing the
// relay's own for this call. An active takeover still walks first. A nil
// or empty priority behaves exactly like Resolve.
func (r *Relay[T]) ResolveWith(method string, priority []Protocol) (T, error) {
	var zero T
	if !r.surface[method] {
		return zero, fmt.Errorf("%w: method %q not in capability surface", ErrBadRegistration, method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range r.orderWith(priority) {
		reg, ok := r.registered[tag]
		if !ok {
			continue
		}
		if reg.methods[method] {
			return reg.instance, nil
		}
	}
	return zero, fmt.Errorf("%w: %s", ErrNotSupported, method)
}

// Takeover makes tag the highest-priority backend until Release. Only
// one takeover may be active at a time.
func (r *Relay[T]) Takeover(tag Protocol) error {
	if !r.inPriority(tag) {
		return fmt.Errorf("%w: unknown protocol %q", ErrBadRegistration, tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takeover != "" {
		return fmt.Errorf("%w: takeover by %q active", ErrInvalidState, r.takeover)
	}
	r.takeover = tag
	return nil
}

// Release clears an active takeover. Releasing with none active is a
// no-op.
func (r *Relay[T]) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.takeover = ""
}

// MainInstance returns the implementation an unqualified call would
// reach right now, honoring takeover.
func (r *Relay[T]) MainInstance() (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range r.order() {
		if reg, ok := r.registered[tag]; ok {
			return reg.instance, nil
		}
	}
	return zero, fmt.Errorf("%w: no backend registered", ErrNotSupported)
}

// MainProtocol returns the tag an unqualified call would reach right
// now, honoring takeover.
func (r *Relay[T]) MainProtocol() (Protocol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range r.order() {
		if _, ok := r.registered[tag]; ok {
			return tag, nil
		}
	}
	return "", fmt.Errorf("%w: no backend registered", ErrNotSupported)
}

// order returns the effective priority with an active takeover tag
// prepended. Callers hold r.mu.
func (r *Relay[T]) order() []Protocol {
	return r.orderWith(nil)
}

// orderWith is order with an optional per-call priority replacing the
// relay's own. Callers hold r.mu.
func (r *Relay[T]) orderWith(priority []Protocol) []Protocol {
	if len(priority) == 0 {
		priority = r.priority
	}
	if r.takeover == "" {
		return priority
	}
	order := make([]Protocol, 0, len(priority)+1)
	order = append(order, r.takeover)
	for _, tag := range priority {
		if tag != r.takeover {
			order = append(order, tag)
		}
	}
	return order
}

func (r *Relay[T]) inPriority(tag Protocol) bool {
	for _, t := range r.priority {
		if t == tag {
			return true
		}
	}
	return false
}
