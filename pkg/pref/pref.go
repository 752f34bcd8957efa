// Package pref provides small, explicitly-owned preference holders.
//
// The upload page has exactly one piece of global UI state worth
// keeping — the theme toggle — and it is modeled as an owned value
// rather than an ambient global:
//
//	theme := pref.New("theme", "light")
//	theme.Set("dark")
//	current := theme.Get()
package pref

import (
	"sync"
	"time"
)

// Pref is a named preference value. Reads and writes are safe for
// concurrent use.
type Pref[T comparable] struct {
	key      string
	defaults T

	mu        sync.RWMutex
	value     T
	updatedAt time.Time
	onChange  func(key string, value T)
}

// New creates a preference with the given key and default value.
func New[T comparable](key string, defaultValue T) *Pref[T] {
	return &Pref[T]{
		key:       key,
		defaults:  defaultValue,
		value:     defaultValue,
		updatedAt: time.Now(),
	}
}

// Get returns the current value.
func (p *Pref[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set updates the value and notifies the change handler. Setting the
// current value again is a no-op.
func (p *Pref[T]) Set(value T) {
	p.mu.Lock()
	if p.value == value {
		p.mu.Unlock()
		return
	}
	p.value = value
	p.updatedAt = time.Now()
	onChange := p.onChange
	p.mu.Unlock()

	if onChange != nil {
		onChange(p.key, value)
	}
}

// Reset restores the default value.
func (p *Pref[T]) Reset() {
	p.Set(p.defaults)
}

// Key returns the preference key.
func (p *Pref[T]) Key() string {
	return p.key
}

// UpdatedAt returns when the value last changed.
func (p *Pref[T]) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// OnChange registers a handler called after every effective Set. One
// handler is supported; registering replaces the previous one.
func (p *Pref[T]) OnChange(fn func(key string, value T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}
