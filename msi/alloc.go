// MSI vector allocator
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package msi

import (
	"errors"

	"github.com/rvkernel/aia/irqdomain"
)

// sizeForRange picks the largest power-of-two vector count n such that
// n <= maxVecs, failing if n < minVecs, mirroring the size-selection step
// of spec.md §4.4. The loop doubles nvec only while the doubled value still
// does not exceed maxVecs: when maxVecs is itself a power of two the result equals
// maxVecs, and when minVecs == maxVecs is not a power of two the request
// always fails.
func sizeForRange(minVecs, maxVecs int) (int, error) {
	if minVecs < 1 || maxVecs < minVecs || maxVecs > MaxVectors {
		return 0, errors.New("msi: invalid vector range")
	}

	nvec := 1
	for nvec*2 <= maxVecs {
		nvec *= 2
	}

	if nvec < minVecs {
		return 0, errors.New("msi: no power-of-two block fits the requested range")
	}

	return nvec, nil
}

// AllocVectors reserves a contiguous, power-of-two block of MSI vectors for
// a device, mirroring alloc_vectors(device, min_vecs, max_vecs, flags). The
// registry and domain must already exist (spec.md §4.4 preconditions); dev
// is stored verbatim as each created descriptor's weak back-reference and
// is never dereferenced here.
//
// On success it returns the number of vectors allocated (a power of two)
// and the registry holds one freshly-mapped descriptor per vector, in
// ascending hwirq order. On failure, the registry and domain are left
// exactly as they were before the call: any partially-created descriptors
// are unwound and the reserved hwirq range, if any, is released.
func AllocVectors(registry *Registry, domain *irqdomain.Domain, dev any, minVecs, maxVecs int, flags uint32) (int, error) {
	if dev == nil {
		return 0, errors.New("msi: nil device")
	}

	if registry == nil || domain == nil {
		return 0, errors.New("msi: device has no MSI registry/domain")
	}

	nvec, err := sizeForRange(minVecs, maxVecs)
	if err != nil {
		return 0, err
	}

	registry.Lock()
	defer registry.Unlock()

	base, err := domain.AllocHwirqRange(nvec)
	if err != nil {
		return 0, err
	}

	created := make([]*Desc, 0, nvec)

	for i := 0; i < nvec; i++ {
		desc, err := DescAlloc(dev, 1)
		if err != nil {
			unwindAlloc(registry, domain, created, base, nvec)
			return 0, err
		}

		desc.Hwirq = base + uint32(i)
		desc.MsiAttrib = uint16(flags & 0xffff)

		virq := domain.CreateMapping(desc.Hwirq)
		if virq == 0 {
			unwindAlloc(registry, domain, created, base, nvec)
			return 0, errors.New("msi: failed to create irq mapping")
		}

		desc.Virq = virq

		registry.addLocked(desc)
		created = append(created, desc)
	}

	return nvec, nil
}

// unwindAlloc rolls back a partially-populated allocation: every already
// created descriptor has its mapping disposed and is unlinked, then the
// whole reserved hwirq range is freed atomically, mirroring spec.md §4.4
// step 4. The caller must already hold registry's lock.
func unwindAlloc(registry *Registry, domain *irqdomain.Domain, created []*Desc, base uint32, nvec int) {
	for _, desc := range created {
		if desc.Virq != 0 {
			domain.DisposeMapping(desc.Virq)
		}

		registry.unlinkLocked(desc)
	}

	domain.FreeHwirqRange(base, nvec)
}

// FreeVectors releases every MSI vector allocated to a device, mirroring
// free_vectors(device): each descriptor's mapping is disposed, its single
// hwirq is freed, and it is unlinked and destroyed. After it returns, the
// registry is an empty sentinel with NumVectors() == 0.
func FreeVectors(registry *Registry, domain *irqdomain.Domain) {
	registry.Lock()
	defer registry.Unlock()

	for e := registry.list.Front(); e != nil; {
		next := e.Next()
		desc := e.Value.(*Desc)

		if desc.Virq != 0 {
			domain.DisposeMapping(desc.Virq)
		}

		domain.FreeHwirqRange(desc.Hwirq, 1)

		registry.unlinkLocked(desc)

		e = next
	}
}
