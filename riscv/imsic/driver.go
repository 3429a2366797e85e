// RISC-V IMSIC device-tree driver binding
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package imsic

import (
	"errors"

	"github.com/rvkernel/aia/device"
)

// compatible device-tree strings this driver probes for, mirroring the
// bindings real RISC-V platforms (and QEMU's virt/sifive_u machines)
// expose for the IMSIC.
var compatible = []string{"riscv,imsics", "qemu,imsics"}

// Driver is the device/driver-binding adapter for the IMSIC chip,
// mirroring spec.md §4.6/G.
type Driver struct{}

func init() {
	device.Register(&Driver{})
}

// Name returns the driver's registry name.
func (d *Driver) Name() string {
	return "imsic"
}

// Probe scores dev's compatible string against the IMSIC's device-tree
// bindings, mirroring the exact-match probe described in spec.md §4.6.
func (d *Driver) Probe(dev *device.Device) int {
	if dev.MatchesCompatible(compatible...) {
		return device.ProbeScoreExact
	}

	return device.ProbeScoreNone
}

// Attach initializes the singleton IMSIC controller against dev, mirroring
// spec.md §8 S9: a second attach attempt (this driver or any other IMSIC
// instance) fails without disturbing the first.
func (d *Driver) Attach(dev *device.Device) error {
	return Attach(dev)
}

// Detach is unsupported: bare-metal IMSIC instances are not expected to be
// unbound once the platform has attached them.
func (d *Driver) Detach(dev *device.Device) error {
	return errors.New("imsic: detach not supported")
}
