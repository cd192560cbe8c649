// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mediaplayer

import (
	"fmt"
	"sync"
)

// Handle identifies a live object by identity across the channel. Zero is
// the null handle.
type Handle uint64

// Registry hands out handles for objects owned by the service process, such
// as stream sources and video surfaces. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	next    Handle
	objects map[Handle]any
}

func NewRegistry() *Registry {
	return &Registry{objects: make(map[Handle]any)}
}

// Register stores obj and returns its new handle.
func (r *Registry) Register(obj any) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.objects[r.next] = obj
	return r.next
}

// Lookup returns the object behind h.
func (r *Registry) Lookup(h Handle) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[h]
	return obj, ok
}

// Release forgets h and reports whether it was registered.
func (r *Registry) Release(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[h]
	delete(r.objects, h)
	return ok
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Resolve looks h up and asserts the object's type. Unknown handles and
// objects of another type are BadValue.
func Resolve[T any](r *Registry, h Handle) (T, error) {
	var zero T
	obj, ok := r.Lookup(h)
	if !ok {
		return zero, fmt.Errorf("%w: unknown handle %d", BadValue, h)
	}
	v, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: handle %d is %T", BadValue, h, obj)
	}
	return v, nil
}
