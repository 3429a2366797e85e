// Generic IRQ domain core
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package irqdomain provides a minimal generic IRQ domain, the collaborator
// that the MSI allocator and chip drivers use to reserve hardware interrupt
// identifiers (hwirq) and map them to kernel-visible virtual IRQ numbers
// (virq).
//
// This mirrors the external surface quoted by the MSI core it supports
// (irq_domain_alloc_hwirq_range, irq_domain_free_hwirq_range,
// irq_create_mapping, irq_dispose_mapping, irq_find_mapping, irq_to_desc,
// irq_domain_create_linear, generic_handle_irq, enable_irq/
// disable_irq_nosync) without attempting to be a general-purpose,
// hierarchical IRQ subsystem: no domain nesting, no affinity, no dynamic
// resizing.
package irqdomain

import (
	"errors"
	"sync"
)

// Chip is the interrupt-chip vtable a domain's descriptors are bound to. It
// plays the role of struct irq_chip: enable/disable control the hardware
// mask, Ack clears the level after dispatch.
type Chip interface {
	Enable(hwirq uint32)
	Disable(hwirq uint32)
	Ack(hwirq uint32)
}

// Desc is an IRQ descriptor, the per-virq record returned by ToDesc/
// irq_to_desc. It carries the chip binding and the handler installed by the
// consumer of generic_handle_irq.
type Desc struct {
	Virq  uint32
	Hwirq uint32

	chip     Chip
	chipData any
	handler  func()
}

// SetHandler installs the function invoked by HandleIRQ for this descriptor.
func (d *Desc) SetHandler(fn func()) {
	d.handler = fn
}

// ChipData returns the chip-private pointer bound by Bind, mirroring the
// chip-private pointer irq_set_chip_data stores on struct irq_desc.
func (d *Desc) ChipData() any {
	return d.chipData
}

// Bind attaches a chip vtable and chip-private data to the descriptor. It
// sets the same chip binding as SetChip, plus the chip-private data that
// SetChip leaves untouched, and, unlike SetChip, assumes the caller
// already holds the owning domain's lock: it exists for a domain's MapFunc,
// invoked from within CreateMapping while the lock is held.
func (d *Desc) Bind(chip Chip, chipData any) {
	d.chip = chip
	d.chipData = chipData
}

// MapFunc is a linear domain's map operation, invoked once when
// CreateMapping establishes a fresh hwirq->virq mapping, mirroring the
// domain_map callback of struct irq_domain_ops. It runs with the domain's
// lock held, so implementations must only touch the *Desc passed to them
// (via Desc.Bind), never call back into the *Domain.
type MapFunc func(desc *Desc) error

// Domain is a linear IRQ domain: a fixed-size [0, Size) hwirq space, backed
// by a first-fit contiguous-range allocator, plus the hwirq->virq mapping
// table. It is the concrete, minimal stand-in for the generic IRQ-domain
// core spec.md places out of scope.
type Domain struct {
	sync.Mutex

	// Size is the fixed number of hardware IRQ identifiers in [0, Size).
	Size int

	allocated   []bool
	hwirqToVirq map[uint32]uint32
	descs       map[uint32]*Desc
	nextVirq    uint32
	mapFunc     MapFunc
}

// NewLinear creates a linear IRQ domain of the given fixed size, mirroring
// irq_domain_create_linear(node, size, ops, host_data). mapFunc plays the
// role of domain-ops.map and may be nil; per-domain host_data is simply
// whatever the caller embeds alongside the *Domain (e.g. the owning
// *imsic.Controller).
func NewLinear(size int, mapFunc MapFunc) *Domain {
	return &Domain{
		Size:        size,
		allocated:   make([]bool, size),
		hwirqToVirq: make(map[uint32]uint32),
		descs:       make(map[uint32]*Desc),
		nextVirq:    1,
		mapFunc:     mapFunc,
	}
}

// AllocHwirqRange reserves n consecutive hwirq identifiers, mirroring
// irq_domain_alloc_hwirq_range. It returns the base of the reserved range on
// success, or an error if no contiguous run of n free ids exists.
func (dom *Domain) AllocHwirqRange(n int) (base uint32, err error) {
	if n <= 0 {
		return 0, errors.New("irqdomain: invalid range size")
	}

	dom.Lock()
	defer dom.Unlock()

	run := 0

	for i := 0; i < len(dom.allocated); i++ {
		if dom.allocated[i] {
			run = 0
			continue
		}

		run++

		if run == n {
			start := i - n + 1

			for j := start; j <= i; j++ {
				dom.allocated[j] = true
			}

			return uint32(start), nil
		}
	}

	return 0, errors.New("irqdomain: no contiguous hwirq range available")
}

// FreeHwirqRange releases the inclusive range [base, base+n) previously
// returned by AllocHwirqRange, mirroring irq_domain_free_hwirq_range. It is
// undefined (and here a no-op past the domain bounds) if the range was not
// reserved.
func (dom *Domain) FreeHwirqRange(base uint32, n int) {
	dom.Lock()
	defer dom.Unlock()

	for i := base; i < base+uint32(n) && int(i) < len(dom.allocated); i++ {
		dom.allocated[i] = false
	}
}

// CreateMapping returns the virq mapped to hwirq, creating one if none
// exists yet, mirroring irq_create_mapping. Repeated calls with the same
// hwirq return the same virq. It returns 0 if hwirq lies outside the domain
// or if the domain's MapFunc rejects the new mapping.
func (dom *Domain) CreateMapping(hwirq uint32) (virq uint32) {
	dom.Lock()
	defer dom.Unlock()

	if int(hwirq) >= dom.Size {
		return 0
	}

	if existing, ok := dom.hwirqToVirq[hwirq]; ok {
		return existing
	}

	virq = dom.nextVirq
	dom.nextVirq++

	desc := &Desc{Virq: virq, Hwirq: hwirq}

	if dom.mapFunc != nil {
		if err := dom.mapFunc(desc); err != nil {
			dom.nextVirq--
			return 0
		}
	}

	dom.hwirqToVirq[hwirq] = virq
	dom.descs[virq] = desc

	return virq
}

// DisposeMapping tears down the mapping created by CreateMapping, mirroring
// irq_dispose_mapping. It is safe to call after CreateMapping and a no-op on
// an unmapped virq.
func (dom *Domain) DisposeMapping(virq uint32) {
	if virq == 0 {
		return
	}

	dom.Lock()
	defer dom.Unlock()

	desc, ok := dom.descs[virq]
	if !ok {
		return
	}

	delete(dom.hwirqToVirq, desc.Hwirq)
	delete(dom.descs, virq)
}

// FindMapping returns the virq mapped to hwirq, or 0 if none exists,
// mirroring irq_find_mapping.
func (dom *Domain) FindMapping(hwirq uint32) (virq uint32) {
	dom.Lock()
	defer dom.Unlock()

	return dom.hwirqToVirq[hwirq]
}

// ToDesc returns the IRQ descriptor for virq, or nil, mirroring
// irq_to_desc.
func (dom *Domain) ToDesc(virq uint32) *Desc {
	dom.Lock()
	defer dom.Unlock()

	return dom.descs[virq]
}

// SetChip attaches a chip vtable to the descriptor at virq, mirroring the
// domain_map binding in spec.md §4.5. It fails if virq has no descriptor.
func (dom *Domain) SetChip(virq uint32, chip Chip) error {
	dom.Lock()
	defer dom.Unlock()

	desc, ok := dom.descs[virq]
	if !ok {
		return errors.New("irqdomain: no descriptor for virq")
	}

	desc.chip = chip

	return nil
}

// HandleIRQ invokes the handler installed on virq's descriptor, mirroring
// generic_handle_irq. It is a no-op if virq is 0 or has no handler.
func (dom *Domain) HandleIRQ(virq uint32) {
	if virq == 0 {
		return
	}

	dom.Lock()
	desc, ok := dom.descs[virq]
	dom.Unlock()

	if !ok || desc.handler == nil {
		return
	}

	desc.handler()
}

// Enable unmasks the interrupt at virq by invoking the bound chip's Enable
// operation, mirroring enable_irq. It is a no-op on an unmapped virq.
func (dom *Domain) Enable(virq uint32) {
	dom.chipOp(virq, func(c Chip, hwirq uint32) { c.Enable(hwirq) })
}

// DisableNosync masks the interrupt at virq by invoking the bound chip's
// Disable operation, mirroring disable_irq_nosync. It is a no-op on an
// unmapped virq.
func (dom *Domain) DisableNosync(virq uint32) {
	dom.chipOp(virq, func(c Chip, hwirq uint32) { c.Disable(hwirq) })
}

func (dom *Domain) chipOp(virq uint32, op func(Chip, uint32)) {
	if virq == 0 {
		return
	}

	dom.Lock()
	defer dom.Unlock()

	desc, ok := dom.descs[virq]
	if !ok || desc.chip == nil {
		return
	}

	op(desc.chip, desc.Hwirq)
}
