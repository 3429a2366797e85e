// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sifive_u

import "testing"

func TestInitBindsIMSIC(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if IMSIC.DriverData() == nil {
		t.Fatal("expected the imsic driver to have attached and stored driver data")
	}
}
