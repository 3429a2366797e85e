// Per-device MSI registry
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package msi

import (
	"container/list"
	"sync"
)

// Registry is a per-device registry of live MSI descriptors, mirroring the
// sentinel-based doubly-linked list plus IRQ-safe lock described in
// spec.md §3/§4.3. It is built on container/list, the same free-/used-block
// bookkeeping idiom tamago's dma.Region uses for its allocator, giving O(1)
// tail-append and O(1) unlink from the *list.Element a descriptor carries.
type Registry struct {
	sync.Mutex

	list       *list.List
	numVectors int
}

// NewRegistry allocates and initializes a device's MSI registry, mirroring
// msi_device_init. Calling it twice on the same device without an
// intervening Cleanup is a caller error (the second registry simply shadows
// the first, exactly as the source's un-guarded re-init would).
func NewRegistry() *Registry {
	return &Registry{list: list.New()}
}

// NumVectors returns the number of descriptors currently reachable from the
// registry.
func (r *Registry) NumVectors() int {
	r.Lock()
	defer r.Unlock()

	return r.numVectors
}

// Add appends desc to the registry under lock, mirroring list_add (the
// non-locked variant from spec.md §4.3).
func (r *Registry) Add(desc *Desc) {
	r.Lock()
	defer r.Unlock()

	r.addLocked(desc)
}

// addLocked appends desc to the registry, mirroring list_add_locked. The
// caller must already hold r's lock.
func (r *Registry) addLocked(desc *Desc) {
	desc.registry = r
	desc.elem = r.list.PushBack(desc)
	desc.refcount++
	r.numVectors++
}

// unlink removes desc from the registry, mirroring the unlink step shared by
// desc_free, alloc_vectors' rollback, free_vectors, and msi_device_cleanup.
func (r *Registry) unlink(desc *Desc) {
	r.Lock()
	defer r.Unlock()

	r.unlinkLocked(desc)
}

// unlinkLocked removes desc from the registry and drops its list-owned
// reference, destroying it once the reference count reaches zero. The
// caller must already hold r's lock. It is a no-op on an already-unlinked
// descriptor.
func (r *Registry) unlinkLocked(desc *Desc) {
	if desc.elem == nil {
		return
	}

	r.list.Remove(desc.elem)
	desc.elem = nil
	desc.registry = nil
	r.numVectors--

	desc.refcount--
	if desc.refcount <= 0 {
		desc.Hwirq = 0
		desc.Virq = 0
	}
}

// Each invokes fn for every descriptor reachable from the registry, in
// ascending traversal (insertion) order.
func (r *Registry) Each(fn func(*Desc)) {
	r.Lock()
	defer r.Unlock()

	for e := r.list.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Desc))
	}
}

// Cleanup walks and unlinks every descriptor, decrementing each reference
// count and destroying any that reach zero, then leaves the registry as an
// empty sentinel, mirroring msi_device_cleanup. It is safe to call on an
// already-empty registry.
func (r *Registry) Cleanup() {
	r.Lock()
	defer r.Unlock()

	for e := r.list.Front(); e != nil; {
		next := e.Next()
		r.unlinkLocked(e.Value.(*Desc))
		e = next
	}
}
