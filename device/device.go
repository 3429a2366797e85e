// Device and driver-binding model
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package device provides the minimal device and driver-binding collaborator
// quoted, but left unspecified, by the MSI/IMSIC core (spec.md §6, "Device /
// driver surface" and "Device-tree compatibles"): a device-tree-style node
// with memory resources and properties, a match-string probe/attach/detach
// driver registry, and the per-device MSI registry/domain pair the MSI
// allocator operates on.
//
// This is intentionally thin: no bus model, no sysfs, no hotplug. It exists
// only to the depth spec.md's external-interfaces table requires.
package device

import (
	"errors"
	"strings"
	"sync"

	"github.com/rvkernel/aia/irqdomain"
	"github.com/rvkernel/aia/msi"
)

// Resource types, mirroring device_get_resource(dev, RES_TYPE_MEM, 0).
const (
	ResourceMem = iota
)

// Resource is a single device resource (e.g. an MMIO window).
type Resource struct {
	Type int

	// Start is the resource's physical base address.
	Start uint64

	// Size is the resource's length in bytes.
	Size uint64

	// MappedAddr is the resource's pre-mapped virtual/accessible address,
	// when the platform already maps it; 0 if the device must use Start
	// directly.
	MappedAddr uint64
}

// Device is a minimal device-tree node: identity, resources, properties,
// opaque driver data, and (once a device opts into MSI) its own per-device
// MSI registry and MSI domain, per spec.md §3/§4.4 preconditions.
type Device struct {
	mu sync.Mutex

	// Compatible holds the device-tree compatible string(s), matched by
	// probe via substring search (spec.md §6, "Device-tree compatibles").
	Compatible string

	resources  []Resource
	properties map[string]uint32
	driverData any

	// Registry is the device's per-device MSI registry (component C),
	// non-nil only after InitMSI.
	Registry *msi.Registry

	// MSIDomain is the MSI domain a device allocates vectors from
	// (supplied by the owning chip driver, e.g. *imsic.Controller's
	// domain), non-nil only once a chip driver has attached it.
	MSIDomain *irqdomain.Domain
}

// New creates a device node with the given device-tree compatible string.
func New(compatible string) *Device {
	return &Device{
		Compatible: compatible,
		properties: make(map[string]uint32),
	}
}

// AddResource appends a resource to the device.
func (d *Device) AddResource(r Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resources = append(d.resources, r)
}

// Resource returns the index'th resource of the given type, mirroring
// device_get_resource(dev, type, index).
func (d *Device) Resource(kind int, index int) (Resource, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0

	for _, r := range d.resources {
		if r.Type != kind {
			continue
		}

		if n == index {
			return r, true
		}

		n++
	}

	return Resource{}, false
}

// SetProperty sets a device-tree property, read back by PropertyU32.
func (d *Device) SetProperty(key string, val uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.properties[key] = val
}

// PropertyU32 returns a device-tree property, or def if unset, mirroring
// device_get_property_u32(dev, key, default).
func (d *Device) PropertyU32(key string, def uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.properties[key]; ok {
		return v
	}

	return def
}

// SetDriverData stores the attaching driver's opaque private pointer,
// mirroring device_set_driver_data(dev, ptr).
func (d *Device) SetDriverData(v any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.driverData = v
}

// DriverData returns the pointer stored by SetDriverData, or nil.
func (d *Device) DriverData() any {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.driverData
}

// MatchesCompatible reports whether any of the device-tree compatible
// substrings is contained in the device's Compatible string, mirroring the
// probe substring match described in spec.md §4.6/§6.
func (d *Device) MatchesCompatible(substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(d.Compatible, s) {
			return true
		}
	}

	return false
}

// InitMSI allocates the device's per-device MSI registry and attaches the
// MSI domain it should allocate vectors from, mirroring msi_device_init. It
// is an error to call InitMSI twice on the same device without an
// intervening CleanupMSI.
func (d *Device) InitMSI(domain *irqdomain.Domain) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Registry != nil {
		return errors.New("device: MSI already initialized")
	}

	if domain == nil {
		return errors.New("device: nil MSI domain")
	}

	d.Registry = msi.NewRegistry()
	d.MSIDomain = domain

	return nil
}

// CleanupMSI drains and destroys the device's MSI registry, mirroring
// msi_device_cleanup. It is safe to call on a device without a registry.
func (d *Device) CleanupMSI() {
	d.mu.Lock()
	registry := d.Registry
	d.Registry = nil
	d.MSIDomain = nil
	d.mu.Unlock()

	if registry == nil {
		return
	}

	registry.Cleanup()
}

// AllocVectors reserves a power-of-two block of MSI vectors for the device,
// mirroring spec.md §4.4's alloc_vectors(device, min_vecs, max_vecs, flags).
func (d *Device) AllocVectors(minVecs, maxVecs int, flags uint32) (int, error) {
	d.mu.Lock()
	registry := d.Registry
	domain := d.MSIDomain
	d.mu.Unlock()

	if registry == nil || domain == nil {
		return 0, errors.New("device: MSI not initialized")
	}

	return msi.AllocVectors(registry, domain, d, minVecs, maxVecs, flags)
}

// FreeVectors releases every MSI vector allocated to the device, mirroring
// spec.md §4.4's free_vectors(device).
func (d *Device) FreeVectors() {
	d.mu.Lock()
	registry := d.Registry
	domain := d.MSIDomain
	d.mu.Unlock()

	if registry == nil || domain == nil {
		return
	}

	msi.FreeVectors(registry, domain)
}
