// Driver-binding registry
// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

import (
	"errors"
	"sync"
)

// Probe scores, mirroring PROBE_SCORE_EXACT/PROBE_SCORE_NONE (spec.md §4.6).
const (
	ProbeScoreNone  = 0
	ProbeScoreExact = 100
)

// Driver is a driver-binding adapter: Probe scores how well it matches a
// device, Attach performs one-shot initialization, Detach tears down (most
// bare-metal chip drivers, per spec.md §4.6/G, do not support it).
type Driver interface {
	Name() string
	Probe(dev *Device) int
	Attach(dev *Device) error
	Detach(dev *Device) error
}

var (
	registryMu sync.Mutex
	registry   []Driver
)

// Register adds a driver to the built-in driver registry, mirroring
// registration through an early-priority, built-in module hook. Drivers
// call this from an init() function.
func Register(drv Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry = append(registry, drv)
}

// Bind scores every registered driver against dev and attaches the
// highest-scoring match, mirroring the device/driver-binding registry
// quoted (but left unspecified) by spec.md §1/§6.
func Bind(dev *Device) (Driver, error) {
	registryMu.Lock()
	candidates := make([]Driver, len(registry))
	copy(candidates, registry)
	registryMu.Unlock()

	var best Driver
	bestScore := ProbeScoreNone

	for _, drv := range candidates {
		if score := drv.Probe(dev); score > bestScore {
			best = drv
			bestScore = score
		}
	}

	if best == nil {
		return nil, errors.New("device: no matching driver")
	}

	if err := best.Attach(dev); err != nil {
		return nil, err
	}

	return best, nil
}
