// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package emu provides an accelerator emulated in host memory.
//
// Device buffers are separate from the host containers, so moving data to
// and from the device behaves as with a real accelerator. It supports
// float32 and float64.
//
// Example:
//
//	dev := emu.New()
//	defer dev.Close()
//	ctx := etl.WithDevice(context.Background(), dev)
package emu

import (
	internalemu "github.com/born-ml/etl/internal/backend/emu"
)

// Device is the emulated accelerator.
type Device = internalemu.Device

// New creates an emulated device.
func New() *Device {
	return internalemu.New()
}
