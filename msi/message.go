// MSI message and mask/unmask operations
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package msi

import "github.com/rvkernel/aia/irqdomain"

// ComposeMsg returns the descriptor's last composed MSI message, mirroring
// compose_msg copying from the descriptor to a caller buffer.
func (desc *Desc) ComposeMsg() Msg {
	return desc.Msg
}

// WriteMsg stores m as the descriptor's MSI message, mirroring write_msg
// copying from a caller buffer into the descriptor.
func (desc *Desc) WriteMsg(m Msg) {
	desc.Msg = m
}

// MaskIRQ masks the descriptor's interrupt, mirroring mask_irq delegating
// to disable_irq_nosync against Virq. It is a no-op on an unmapped
// descriptor.
func MaskIRQ(desc *Desc, domain *irqdomain.Domain) {
	if desc.Virq == 0 {
		return
	}

	domain.DisableNosync(desc.Virq)
}

// UnmaskIRQ unmasks the descriptor's interrupt, mirroring unmask_irq
// delegating to enable_irq against Virq. It is a no-op on an unmapped
// descriptor.
func UnmaskIRQ(desc *Desc, domain *irqdomain.Domain) {
	if desc.Virq == 0 {
		return
	}

	domain.Enable(desc.Virq)
}

// SetAffinity is a recognized stub returning success; SMP affinity
// steering is a non-goal (spec.md §1/§4.4).
func SetAffinity(desc *Desc, cpuMask uint64) error {
	return nil
}
