// RISC-V IMSIC controller
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package imsic

import (
	"errors"
	"sync"

	"github.com/rvkernel/aia/bits"
	"github.com/rvkernel/aia/device"
	"github.com/rvkernel/aia/irqdomain"
)

// Controller is the IMSIC chip driver: it owns one File per hart, the
// generic IRQ domain devices allocate MSI vectors from, and dispatches
// top-level interrupts into that domain, mirroring spec.md §4.5/E-F.
type Controller struct {
	Files []*File

	// NumHarts is the number of per-hart interrupt files this controller
	// manages.
	NumHarts int

	// NumIDs is the number of interrupt identifiers each file supports.
	NumIDs int

	// BasePPN is the IMSIC group's base guest-physical page number, used
	// by ComposeMsg-style address composition (spec.md §4.5).
	BasePPN uint64

	// Domain is the linear IRQ domain devices allocate MSI vectors
	// from, one hwirq per interrupt identifier.
	Domain *irqdomain.Domain
}

var (
	mu          sync.Mutex
	initialized bool
	primary     *Controller
)

// mapFunc binds every freshly mapped descriptor to the controller's primary
// (hart 0) file, mirroring the domain_map callback of spec.md §4.5.
func (ctrl *Controller) mapFunc(desc *irqdomain.Desc) error {
	if len(ctrl.Files) == 0 {
		return errors.New("imsic: controller has no interrupt files")
	}

	desc.Bind(ctrl, ctrl.Files[0])

	return nil
}

// Attach initializes the IMSIC controller from dev's first MMIO resource
// and device-tree properties, mirroring the probe/attach sequence of
// spec.md §4.6/G. Only one IMSIC instance may be attached at a time
// (spec.md §8 S9): a second call fails without disturbing the first.
func Attach(dev *device.Device) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return errors.New("imsic: controller already attached")
	}

	res, ok := dev.Resource(device.ResourceMem, 0)
	if !ok {
		return errors.New("imsic: device has no MMIO resource")
	}

	base := res.MappedAddr
	if base == 0 {
		base = res.Start
	}

	if base == 0 {
		return errors.New("imsic: invalid MMIO base")
	}

	numIDs := int(dev.PropertyU32("riscv,num-ids", MaxIDs))
	if numIDs <= 0 || numIDs > MaxIDs {
		return errors.New("imsic: invalid riscv,num-ids")
	}

	numHarts := int(dev.PropertyU32("riscv,num-harts", 1))
	if numHarts <= 0 {
		return errors.New("imsic: invalid riscv,num-harts")
	}

	files := make([]*File, numHarts)

	for i := 0; i < numHarts; i++ {
		files[i] = &File{
			HartID: i,
			Base:   uint32(base) + uint32(i)*uint32(res.Size)/uint32(numHarts),
			NumIDs: numIDs,
		}
	}

	ctrl := &Controller{
		Files:    files,
		NumHarts: numHarts,
		NumIDs:   numIDs,
		BasePPN:  res.Start >> 12,
	}

	ctrl.Domain = irqdomain.NewLinear(numIDs, ctrl.mapFunc)

	dev.SetDriverData(ctrl)

	initialized = true
	primary = ctrl

	return nil
}

// Detach tears down the attached controller, allowing a subsequent Attach
// to succeed. Bare-metal IMSIC instances are not expected to detach in
// practice, but the hook exists for test isolation and symmetry with
// device.Driver.
func Detach() {
	mu.Lock()
	defer mu.Unlock()

	initialized = false
	primary = nil
}

// Primary returns the currently attached controller, or nil.
func Primary() *Controller {
	mu.Lock()
	defer mu.Unlock()

	return primary
}

// Enable implements irqdomain.Chip by setting hwirq's enable bit on the
// owning hart's file, mirroring enable_irq dispatching to the chip's
// irq_unmask.
func (ctrl *Controller) Enable(hwirq uint32) {
	ctrl.fileFor(hwirq).SetEnabled(hwirq, true)
}

// Disable implements irqdomain.Chip by clearing hwirq's enable bit,
// mirroring disable_irq_nosync dispatching to the chip's irq_mask.
func (ctrl *Controller) Disable(hwirq uint32) {
	ctrl.fileFor(hwirq).SetEnabled(hwirq, false)
}

// Ack implements irqdomain.Chip by clearing hwirq's pending bit, mirroring
// the chip's irq_ack/irq_eoi invoked after dispatch.
func (ctrl *Controller) Ack(hwirq uint32) {
	ctrl.fileFor(hwirq).ClearPending(hwirq)
}

// fileFor returns the interrupt file dispatch/masking for hwirq should use.
// All devices in this implementation route through hart 0's file (spec.md
// §4.5 leaves multi-hart steering a non-goal, SetAffinity is a stub).
func (ctrl *Controller) fileFor(hwirq uint32) *File {
	return ctrl.Files[0]
}

// HandleIRQ services one top-level IMSIC interrupt on hart 0's file: it
// scans the EIP word bank for the lowest-numbered pending identifier,
// dispatches it through the generic IRQ domain, then acks it, mirroring
// spec.md §4.5/§8 S8.
//
// If no EIP bit is set, HandleIRQ returns without dispatching or clearing
// anything. Identifier 0 is reserved and means no interrupt pending: when
// the lowest pending bit found is identifier 0 (bit 0 of word 0),
// HandleIRQ likewise returns without dispatching or clearing it.
func (ctrl *Controller) HandleIRQ() {
	file := ctrl.Files[0]

	for word := uint32(0); word < file.NumWords(); word++ {
		v := file.EIPWord(word)
		if v == 0 {
			continue
		}

		bit := bits.Ffs(v)
		if bit == 0 {
			continue
		}

		hwirq := word*32 + uint32(bit) - 1
		if hwirq == 0 {
			return
		}

		virq := ctrl.Domain.FindMapping(hwirq)

		ctrl.Domain.HandleIRQ(virq)
		file.ClearPending(hwirq)

		return
	}
}
