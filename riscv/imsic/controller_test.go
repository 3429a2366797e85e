// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package imsic

import (
	"testing"

	"github.com/rvkernel/aia/device"
)

func newFixtureDevice(t *testing.T, numIDs uint32) *device.Device {
	t.Helper()

	dev := device.New("riscv,imsics")
	dev.AddResource(device.Resource{
		Type:       device.ResourceMem,
		MappedAddr: 0x1000,
		Size:       0x1000,
	})
	dev.SetProperty("riscv,num-ids", numIDs)
	dev.SetProperty("riscv,num-harts", 1)

	return dev
}

func resetController(t *testing.T) {
	t.Helper()
	Detach()
	t.Cleanup(Detach)
}

func TestAttachInitializesController(t *testing.T) {
	resetController(t)

	dev := newFixtureDevice(t, 64)

	if err := Attach(dev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctrl, ok := dev.DriverData().(*Controller)
	if !ok {
		t.Fatal("driver data is not a *Controller")
	}

	if ctrl.NumIDs != 64 {
		t.Fatalf("NumIDs = %d, expected 64", ctrl.NumIDs)
	}

	if Primary() != ctrl {
		t.Fatal("Primary() did not return the attached controller")
	}
}

// S9: a second attach attempt fails, first instance untouched.
func TestAttachRejectsSecondInstance(t *testing.T) {
	resetController(t)

	first := newFixtureDevice(t, 64)
	if err := Attach(first); err != nil {
		t.Fatalf("unexpected error on first attach: %v", err)
	}

	second := newFixtureDevice(t, 64)
	if err := Attach(second); err == nil {
		t.Fatal("expected second attach to fail")
	}

	if Primary() == nil {
		t.Fatal("first instance was disturbed by the failed second attach")
	}

	if second.DriverData() != nil {
		t.Fatal("second device should not have received driver data")
	}
}

func TestAttachRejectsMissingResource(t *testing.T) {
	resetController(t)

	dev := device.New("riscv,imsics")
	dev.SetProperty("riscv,num-ids", 64)

	if err := Attach(dev); err == nil {
		t.Fatal("expected error for device without an MMIO resource")
	}
}

func TestAttachRejectsNonMultipleOf32NumIDs(t *testing.T) {
	resetController(t)

	dev := newFixtureDevice(t, 50)

	if err := Attach(dev); err == nil {
		t.Fatal("expected error for riscv,num-ids not a multiple of 32")
	}
}

func TestDriverProbeScoresCompatibleStrings(t *testing.T) {
	drv := &Driver{}

	exact := device.New("sifive,imsics\x00riscv,imsics")
	if got := drv.Probe(exact); got != device.ProbeScoreExact {
		t.Fatalf("Probe() = %d, expected ProbeScoreExact", got)
	}

	none := device.New("sifive,plic")
	if got := drv.Probe(none); got != device.ProbeScoreNone {
		t.Fatalf("Probe() = %d, expected ProbeScoreNone", got)
	}
}

func TestDriverDetachUnsupported(t *testing.T) {
	drv := &Driver{}

	if err := drv.Detach(device.New("riscv,imsics")); err == nil {
		t.Fatal("expected Detach to report unsupported")
	}
}

func TestFileForRoutesThroughHartZero(t *testing.T) {
	resetController(t)

	dev := newFixtureDevice(t, 64)
	if err := Attach(dev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctrl := dev.DriverData().(*Controller)

	if ctrl.fileFor(5) != ctrl.Files[0] {
		t.Fatal("fileFor did not route through hart 0")
	}
}
