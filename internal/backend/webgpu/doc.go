// Package webgpu implements an accelerator device on WebGPU compute shaders.
//
// The device is backed by github.com/go-webgpu/webgpu, which needs the
// wgpu-native library and is built on windows only. Elsewhere New reports
// ErrUnsupported. Only float32 buffers are supported.
package webgpu
