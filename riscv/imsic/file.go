// RISC-V IMSIC interrupt file
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package imsic implements a driver for the RISC-V Advanced Interrupt
// Architecture Incoming MSI Controller (IMSIC), adopting the following
// reference specification:
//   - RISC-V Advanced Interrupt Architecture (AIA) - v1.0 2023/09/06
//
// It provides File (a single per-hart interrupt file register block),
// Controller (the chip driver dispatching through a generic IRQ domain) and
// Driver (the device/driver-binding adapter), per spec.md §4.5/§4.6.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=riscv64` as
// supported by the TamaGo framework for bare metal Go on RISC-V SoCs, see
// https://github.com/usbarmory/tamago.
package imsic

import (
	"sync/atomic"
	"unsafe"
)

// IMSIC per-hart interrupt file registers, all 32-bit MMIO (spec.md §4.5),
// RISC-V AIA v1.0 §2.3/§2.4.
const (
	SETEIPNUM     = 0x00
	CLREIPNUM     = 0x04
	SETEIDELIVERY = 0x040
	CLREIDELIVERY = 0x044
	EITHRESHOLD   = 0x070
	EIP0          = 0x80
	EIE0          = 0xc0

	// MMIOStride is the per-word spacing within the EIP/EIE banks: one
	// 32-bit word per 32 interrupt identifiers.
	MMIOStride = 4

	// MaxIDs is the number of interrupt identifiers a single file
	// supports (identifiers 0..255; identifier 0 is reserved/unused,
	// spec.md §4.5).
	MaxIDs = 256
)

// File is a single per-hart IMSIC interrupt file, mirroring the one MMIO
// register block a hart's S-mode (or M-mode) IMSIC exposes.
type File struct {
	// HartID identifies which hart this file belongs to.
	HartID int

	// Base is the file's MMIO base address.
	Base uint32

	// NumIDs is the number of interrupt identifiers this file manages
	// (1..256, need not be a multiple of 32; NumWords rounds up).
	NumIDs int
}

func readReg(addr uint32) uint32 {
	reg := (*uint32)(unsafe.Pointer(uintptr(addr)))
	return atomic.LoadUint32(reg)
}

func writeReg(addr uint32, val uint32) {
	reg := (*uint32)(unsafe.Pointer(uintptr(addr)))
	atomic.StoreUint32(reg, val)
}

// wordIndex splits an interrupt identifier into its EIP/EIE word index and
// bit position within that word.
func wordIndex(id uint32) (word uint32, bit uint32) {
	return id / 32, id % 32
}

// SetPending sets the pending bit for id via the write-id SETEIPNUM alias,
// mirroring a device's message-signaled write into the file.
func (hw *File) SetPending(id uint32) {
	writeReg(hw.Base+SETEIPNUM, id)
}

// ClearPending clears the pending bit for id via the write-id CLREIPNUM
// alias, mirroring the ack step of dispatch.
func (hw *File) ClearPending(id uint32) {
	writeReg(hw.Base+CLREIPNUM, id)
}

// Pending reports whether id's pending bit is currently set, by reading its
// EIP word directly.
func (hw *File) Pending(id uint32) bool {
	word, bit := wordIndex(id)
	v := readReg(hw.Base + EIP0 + word*MMIOStride)

	return (v>>bit)&1 == 1
}

// SetEnabled sets or clears id's bit in its EIE word via a read-modify-write.
//
// Unlike most of this driver, SetEnabled is not internally serialized:
// callers must already hold the governing IRQ-descriptor lock before
// invoking it, per spec.md §5's explicit non-goal of chip-level locking.
func (hw *File) SetEnabled(id uint32, enabled bool) {
	word, bit := wordIndex(id)
	addr := hw.Base + EIE0 + word*MMIOStride

	v := readReg(addr)

	if enabled {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}

	writeReg(addr, v)
}

// EIPWord returns the raw EIP bank word covering identifiers
// [32*word, 32*word+32), used by Controller.HandleIRQ to scan for pending
// interrupts.
func (hw *File) EIPWord(word uint32) uint32 {
	return readReg(hw.Base + EIP0 + word*MMIOStride)
}

// NumWords returns the number of 32-bit EIP/EIE words this file spans,
// rounding NumIDs up to a whole word.
func (hw *File) NumWords() uint32 {
	return (uint32(hw.NumIDs) + 31) / 32
}

// SetThreshold sets the interrupt-priority threshold below which pending
// interrupts are not delivered, mirroring EITHRESHOLD.
func (hw *File) SetThreshold(threshold uint32) {
	writeReg(hw.Base+EITHRESHOLD, threshold)
}

// EnableDelivery enables interrupt delivery for this file, mirroring a
// write of 1 to SETEIDELIVERY.
func (hw *File) EnableDelivery() {
	writeReg(hw.Base+SETEIDELIVERY, 1)
}

// DisableDelivery disables interrupt delivery for this file, mirroring a
// write of 1 to CLREIDELIVERY.
func (hw *File) DisableDelivery() {
	writeReg(hw.Base+CLREIDELIVERY, 1)
}
