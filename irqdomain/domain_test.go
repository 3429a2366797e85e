// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package irqdomain

import (
	"errors"
	"testing"
)

var errMapRejected = errors.New("map rejected")

type testChip struct {
	enabled map[uint32]bool
	acked   []uint32
}

func newTestChip() *testChip {
	return &testChip{enabled: make(map[uint32]bool)}
}

func (c *testChip) Enable(hwirq uint32)  { c.enabled[hwirq] = true }
func (c *testChip) Disable(hwirq uint32) { c.enabled[hwirq] = false }
func (c *testChip) Ack(hwirq uint32)     { c.acked = append(c.acked, hwirq) }

func TestAllocHwirqRangeContiguous(t *testing.T) {
	dom := NewLinear(16, nil)

	base, err := dom.AllocHwirqRange(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base != 0 {
		t.Fatalf("base = %d, expected 0", base)
	}

	base2, err := dom.AllocHwirqRange(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base2 != 4 {
		t.Fatalf("base2 = %d, expected 4", base2)
	}
}

func TestAllocHwirqRangeExhausted(t *testing.T) {
	dom := NewLinear(8, nil)

	if _, err := dom.AllocHwirqRange(8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := dom.AllocHwirqRange(1); err == nil {
		t.Fatal("expected error allocating from an exhausted domain")
	}
}

func TestFreeHwirqRangeReopensSpace(t *testing.T) {
	dom := NewLinear(8, nil)

	base, _ := dom.AllocHwirqRange(8)
	dom.FreeHwirqRange(base, 8)

	if _, err := dom.AllocHwirqRange(8); err != nil {
		t.Fatalf("unexpected error after free: %v", err)
	}
}

func TestCreateMappingIsStable(t *testing.T) {
	dom := NewLinear(32, nil)

	v1 := dom.CreateMapping(5)
	v2 := dom.CreateMapping(5)

	if v1 == 0 {
		t.Fatal("expected non-zero virq")
	}

	if v1 != v2 {
		t.Fatalf("repeated CreateMapping(5) returned %d then %d", v1, v2)
	}

	if dom.FindMapping(5) != v1 {
		t.Fatalf("FindMapping(5) = %d, expected %d", dom.FindMapping(5), v1)
	}
}

func TestCreateMappingOutOfRange(t *testing.T) {
	dom := NewLinear(4, nil)

	if v := dom.CreateMapping(10); v != 0 {
		t.Fatalf("expected 0 for out-of-range hwirq, got %d", v)
	}
}

func TestDisposeMapping(t *testing.T) {
	dom := NewLinear(8, nil)

	v := dom.CreateMapping(3)
	dom.DisposeMapping(v)

	if dom.FindMapping(3) != 0 {
		t.Fatal("expected mapping to be gone after dispose")
	}

	if dom.ToDesc(v) != nil {
		t.Fatal("expected descriptor to be gone after dispose")
	}
}

func TestHandleIRQDispatchesOnce(t *testing.T) {
	dom := NewLinear(8, nil)

	v := dom.CreateMapping(5)

	count := 0
	desc := dom.ToDesc(v)
	desc.SetHandler(func() { count++ })

	dom.HandleIRQ(v)

	if count != 1 {
		t.Fatalf("handler invoked %d times, expected 1", count)
	}
}

func TestEnableDisableDelegateToChip(t *testing.T) {
	dom := NewLinear(8, nil)
	chip := newTestChip()

	v := dom.CreateMapping(5)

	if err := dom.SetChip(v, chip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dom.Enable(v)

	if !chip.enabled[5] {
		t.Fatal("expected chip.Enable(5) to have been invoked")
	}

	dom.DisableNosync(v)

	if chip.enabled[5] {
		t.Fatal("expected chip.Disable(5) to have been invoked")
	}
}

func TestSetChipUnknownVirqFails(t *testing.T) {
	dom := NewLinear(8, nil)

	if err := dom.SetChip(99, newTestChip()); err == nil {
		t.Fatal("expected error setting chip on unmapped virq")
	}
}

func TestMapFuncBindsChipOnCreation(t *testing.T) {
	chip := newTestChip()
	chipData := "file-0"

	dom := NewLinear(8, func(desc *Desc) error {
		desc.Bind(chip, chipData)
		return nil
	})

	v := dom.CreateMapping(2)
	if v == 0 {
		t.Fatal("expected non-zero virq")
	}

	desc := dom.ToDesc(v)
	if desc.ChipData() != chipData {
		t.Fatalf("ChipData() = %v, expected %v", desc.ChipData(), chipData)
	}

	dom.Enable(v)

	if !chip.enabled[2] {
		t.Fatal("expected MapFunc-bound chip to receive Enable(2)")
	}
}

func TestMapFuncFailureAbortsMapping(t *testing.T) {
	dom := NewLinear(8, func(desc *Desc) error {
		return errMapRejected
	})

	if v := dom.CreateMapping(2); v != 0 {
		t.Fatalf("expected 0 virq when MapFunc fails, got %d", v)
	}

	if dom.FindMapping(2) != 0 {
		t.Fatal("expected no mapping to remain after MapFunc failure")
	}
}
