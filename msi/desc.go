// MSI descriptor
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package msi provides the generic Message-Signaled Interrupt vector
// allocator: a per-vector descriptor, a per-device registry of live
// descriptors, and an allocator that grants devices contiguous, power-of-two
// blocks of hardware interrupt identifiers.
package msi

import (
	"container/list"
	"errors"
)

// MaxVectors is the largest vector count a single device may request in one
// call, mirroring MSI_MAX_VECTORS.
const MaxVectors = 32

// Msg is an opaque, composed MSI message (address, data), mirroring
// msi_msg. The core never interprets its contents; composing the real
// address/data pair (e.g. from an IMSIC's base_ppn) is the chip driver's
// concern.
type Msg struct {
	Address uint64
	Data    uint32
}

// Desc is a single allocated MSI vector, mirroring struct msi_desc.
type Desc struct {
	// Device is a weak back-reference to the owning device: it exists
	// purely for relation/lookup and is never dereferenced by this
	// package, so a *Desc never extends a device's lifetime.
	Device any

	// Hwirq is the hardware-level interrupt identifier assigned by the
	// IRQ-domain allocator.
	Hwirq uint32

	// Virq is the virtual IRQ obtained when mapping Hwirq into the
	// device's MSI domain; 0 means unmapped.
	Virq uint32

	// MsiAttrib holds the low 16 bits of the caller-supplied allocation
	// flags, stored verbatim.
	MsiAttrib uint16

	// Multiple is log2 of the contiguous block size this descriptor
	// belongs to. It is set only by DescAlloc (the head descriptor of a
	// legacy multi-vector allocation) and is not used by AllocVectors,
	// which creates one descriptor per vector.
	Multiple uint8

	// Msg is the last composed MSI message.
	Msg Msg

	refcount int
	registry *Registry
	elem     *list.Element
}

// DescAlloc allocates a fresh, unlinked descriptor for device, mirroring
// msi_desc_alloc(device, nvec). device must be non-nil and nvec must be in
// [1, MaxVectors]; any other input is a validation failure and the only
// failure this function can produce (allocation failure, in a garbage
// collected runtime, does not occur in practice).
//
// The returned descriptor starts self-linked (not a member of any
// registry) with a reference count of 1.
func DescAlloc(dev any, nvec int) (*Desc, error) {
	if dev == nil {
		return nil, errors.New("msi: nil device")
	}

	if nvec < 1 || nvec > MaxVectors {
		return nil, errors.New("msi: invalid vector count")
	}

	return &Desc{
		Device:   dev,
		Multiple: uint8(log2Ceil(nvec)),
		refcount: 1,
	}, nil
}

// DescFree decrements desc's reference count, unlinking and destroying it
// once the count reaches zero, mirroring msi_desc_free. It is safe to call
// with a nil or already-unlinked descriptor.
func DescFree(desc *Desc) {
	if desc == nil || desc.refcount <= 0 {
		return
	}

	if desc.refcount > 1 {
		desc.refcount--
		return
	}

	if desc.registry != nil {
		// unlink drops the last reference and destroys the descriptor.
		desc.registry.unlink(desc)
		return
	}

	desc.refcount--
}

// log2Ceil returns ceil(log2(n)) for n >= 1.
func log2Ceil(n int) int {
	k := 0

	for (1 << uint(k)) < n {
		k++
	}

	return k
}
