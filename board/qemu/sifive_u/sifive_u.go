// QEMU sifive_u IMSIC wiring
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sifive_u registers the IMSIC interrupt controller device node for
// the QEMU sifive_u machine and binds it through the device/driver-binding
// registry, following the "package-level var holding a preconfigured
// peripheral struct, Init wires it into the running board" idiom the
// teacher uses for its own per-SoC peripheral instances.
package sifive_u

import (
	"github.com/rvkernel/aia/device"
	_ "github.com/rvkernel/aia/riscv/imsic"
)

// IMSIC MMIO window, one 4KiB interrupt file per hart (RISC-V AIA v1.0
// §3.6 memory layout for a single-group machine-level IMSIC).
const (
	IMSIC_BASE  = 0x24000000
	IMSIC_SIZE  = 0x1000
	IMSIC_NVECS = 64
)

// IMSIC is the machine-level interrupt file device node this board exposes
// for MSI vector allocation.
var IMSIC = device.New("qemu,imsics")

// Init registers the IMSIC's resources and properties and binds it to the
// matching driver (riscv/imsic.Driver).
func Init() error {
	IMSIC.AddResource(device.Resource{
		Type:       device.ResourceMem,
		Start:      IMSIC_BASE,
		Size:       IMSIC_SIZE,
		MappedAddr: IMSIC_BASE,
	})
	IMSIC.SetProperty("riscv,num-ids", IMSIC_NVECS)
	IMSIC.SetProperty("riscv,num-harts", 1)

	_, err := device.Bind(IMSIC)

	return err
}
