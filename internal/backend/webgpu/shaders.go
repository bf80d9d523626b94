//go:build windows

package webgpu

// workgroupSize is the number of invocations per workgroup of the vector kernels.
const workgroupSize = 256

// paramsBlock declares the uniform block of the vector kernels at binding.
func paramsBlock(binding string) string {
	return `
struct Params {
    size: u32,
    alpha: f32,
}
@group(0) @binding(` + binding + `) var<uniform> params: Params;
`
}

func kernelMain(body string) string {
	return `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i < params.size) {
        y[i] = ` + body + `;
    }
}
`
}

// pairKernel returns an in-place kernel y[i] = body over x and y.
func pairKernel(body string) string {
	return `
@group(0) @binding(0) var<storage, read> x: array<f32>;
@group(0) @binding(1) var<storage, read_write> y: array<f32>;
` + paramsBlock("2") + kernelMain(body)
}

// selfKernel returns an in-place kernel y[i] = body over y alone.
func selfKernel(body string) string {
	return `
@group(0) @binding(0) var<storage, read_write> y: array<f32>;
` + paramsBlock("1") + kernelMain(body)
}

var (
	copyShader      = pairKernel("x[i]")
	axpyShader      = pairKernel("params.alpha * x[i] + y[i]")
	axmyShader      = pairKernel("params.alpha * x[i] * y[i]")
	axdyShader      = pairKernel("y[i] / (params.alpha * x[i])")
	scalShader      = selfKernel("params.alpha * y[i]")
	scalarAddShader = selfKernel("y[i] + params.alpha")
)

// gemmShader computes the row-major product C = A @ B.
// A is [M, K], B is [K, N], C is [M, N].
const gemmShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> c: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        sum = sum + a[row * params.K + k] * b[k * params.N + col];
    }
    c[row * params.N + col] = sum;
}
`
