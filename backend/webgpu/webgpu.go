// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU accelerator.
//
// The device runs WGSL compute shaders through go-webgpu and supports
// float32. It is available on windows with the wgpu-native library
// installed; elsewhere New fails.
//
// Example:
//
//	dev, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//	ctx := etl.WithDevice(context.Background(), dev)
package webgpu

import (
	internalwebgpu "github.com/born-ml/etl/internal/backend/webgpu"
)

// Device is the WebGPU accelerator.
type Device = internalwebgpu.Device

// New opens the default adapter.
func New() (*Device, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU device can be opened.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
