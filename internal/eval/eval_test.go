package eval

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/backend/emu"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// indirect hides the direct and vector capabilities of a container so
// that evaluations into it take the standard path.
type indirect[T traits.Number] struct {
	*tensor.Dense[T]
}

func (d indirect[T]) Traits() traits.Traits {
	t := d.Dense.Traits()
	t.Direct, t.Vector, t.Accel, t.Padded = false, 0, false, false
	return t
}

type variant struct {
	name   string
	ctx    func() context.Context
	wrap   bool // evaluate into an indirect destination
	want   Strategy
	floats bool // only for accelerator-capable element types
}

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.Parallel = false
	return cfg
}

func withConfig(f func(*config.Config)) func() context.Context {
	return func() context.Context {
		cfg := baseConfig()
		f(&cfg)
		return config.With(context.Background(), cfg)
	}
}

func variants() []variant {
	return []variant{
		{name: "standard", ctx: withConfig(func(*config.Config) {}), wrap: true, want: Standard},
		{name: "direct", ctx: withConfig(func(c *config.Config) { c.Vectorize = false }), want: Direct},
		{name: "direct unrolled off", ctx: withConfig(func(c *config.Config) { c.Vectorize, c.Unroll = false, false }), want: Direct},
		{name: "vectorized", ctx: withConfig(func(*config.Config) {}), want: Vectorized},
		{name: "vectorized sse3", ctx: withConfig(func(c *config.Config) { c.MaxVector = traits.SSE3 }), want: Vectorized},
		{name: "vectorized no padding", ctx: withConfig(func(c *config.Config) { c.Padding = false }), want: Vectorized},
		{name: "vectorized streaming", ctx: withConfig(func(c *config.Config) { c.CacheSize = 16 }), want: Vectorized},
		{name: "parallel", ctx: withConfig(func(c *config.Config) {
			c.Parallel, c.Threads, c.ParallelThreshold = true, 4, 0
		}), want: Vectorized},
		{name: "parallel direct", ctx: withConfig(func(c *config.Config) {
			c.Parallel, c.Threads, c.ParallelThreshold, c.Vectorize = true, 3, 0, false
		}), want: Direct},
		{name: "accelerator", ctx: func() context.Context {
			return backend.WithDevice(withConfig(func(*config.Config) {})(), emu.New())
		}, want: Accelerator, floats: true},
	}
}

func hasVectors() bool { return traits.Detect() != 0 }

func skipUnsupported(t *testing.T, v variant) {
	t.Helper()
	if v.want == Vectorized && !hasVectors() {
		t.Skip("no vector tier on this CPU")
	}
}

func values[T traits.Number](n int, f func(i int) int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = number[T](f(i))
	}
	return out
}

// number converts x to T; complex elements get a small imaginary part.
func number[T traits.Number](x int) T {
	var zero T
	switch any(zero).(type) {
	case complex64:
		return any(complex(float32(x), float32(x%3-1))).(T)
	case complex128:
		return any(complex(float64(x), float64(x%3-1))).(T)
	case float32:
		return any(float32(x)).(T)
	case float64:
		return any(float64(x)).(T)
	case int32:
		return any(int32(x)).(T)
	case int64:
		return any(int64(x)).(T)
	default:
		panic("unexpected element type")
	}
}

// checkEquivalence evaluates dst op= a + 2*b under every strategy and compares with
// the element-wise reference.
func checkEquivalence[T traits.Number](t *testing.T, ops []simd.Op) {
	elem := traits.ElemOf[T]()
	for _, v := range variants() {
		if v.floats && elem.Kind != traits.Float {
			continue
		}
		for _, op := range ops {
			for _, n := range []int{0, 1, 3, 5, 17, 64, 333} {
				t.Run(fmt.Sprintf("%s/%s/%d", v.name, op, n), func(t *testing.T) {
					skipUnsupported(t, v)
					av := values[T](n, func(i int) int { return i%11 + 1 })
					bv := values[T](n, func(i int) int { return i%5 + 1 })
					dv := values[T](n, func(i int) int { return 3*i + 100 })

					a, err := tensor.FromSlice(av, tensor.Shape{n})
					require.NoError(t, err)
					b, err := tensor.FromSlice(bv, tensor.Shape{n})
					require.NoError(t, err)
					d, err := tensor.FromSlice(dv, tensor.Shape{n})
					require.NoError(t, err)

					want := make([]T, n)
					for i := range want {
						want[i] = simd.Apply(op, dv[i], av[i]+2*bv[i])
					}

					src := expr.Add[T](a, expr.Mul[T](b, expr.NewScalar[T](2)))
					ctx := v.ctx()

					counters.Reset()
					if v.wrap {
						apply[T](ctx, op, indirect[T]{d}, src)
					} else {
						apply[T](ctx, op, d, src)
					}

					assert.Equal(t, want, d.Data())
					strategy := v.want
					if strategy == Vectorized && op == simd.Div && !elem.IsFloating() {
						strategy = Direct
					}
					if op != simd.Mod {
						assert.Equal(t, int64(1), counters.Get("eval:"+strategy.String()), "%v", counters.Snapshot())
					}
				})
			}
		}
	}
}

func apply[T traits.Number](ctx context.Context, op simd.Op, dst expr.Result[T], src expr.Expr[T]) {
	switch op {
	case simd.Copy:
		Assign(ctx, dst, src)
	case simd.Add:
		Add(ctx, dst, src)
	case simd.Sub:
		Sub(ctx, dst, src)
	case simd.Mul:
		Mul(ctx, dst, src)
	case simd.Div:
		Div(ctx, dst, src)
	case simd.Mod:
		Mod(ctx, dst, src)
	}
}

func TestStrategyEquivalence(t *testing.T) {
	ops := []simd.Op{simd.Copy, simd.Add, simd.Sub, simd.Mul, simd.Div}
	t.Run("float32", func(t *testing.T) { checkEquivalence[float32](t, ops) })
	t.Run("float64", func(t *testing.T) { checkEquivalence[float64](t, ops) })
	t.Run("int32", func(t *testing.T) { checkEquivalence[int32](t, append(ops, simd.Mod)) })
	t.Run("int64", func(t *testing.T) { checkEquivalence[int64](t, append(ops, simd.Mod)) })
	t.Run("complex64", func(t *testing.T) { checkEquivalence[complex64](t, ops) })
	t.Run("complex128", func(t *testing.T) { checkEquivalence[complex128](t, ops) })
}

func TestScenarioAssignSum(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			skipUnsupported(t, v)
			a, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{6})
			require.NoError(t, err)
			b, err := tensor.FromSlice([]float64{10, 20, 30, 40, 50, 60}, tensor.Shape{6})
			require.NoError(t, err)
			c := tensor.New[float64](tensor.Shape{6})

			var dst expr.Result[float64] = c
			if v.wrap {
				dst = indirect[float64]{c}
			}
			Assign(v.ctx(), dst, expr.Add[float64](a, b))
			assert.Equal(t, []float64{11, 22, 33, 44, 55, 66}, c.Data())
		})
	}
}

func TestScenarioCompoundDivide(t *testing.T) {
	tests := []struct {
		name string
		b    []float64
		want []float64
	}{
		{"as listed", []float64{2000, 3000}, []float64{0.4, 0.3}},
		{"wider divisor", []float64{2000, 4000}, []float64{0.4, 0.24}},
	}
	for _, tt := range tests {
		for _, v := range variants() {
			t.Run(tt.name+"/"+v.name, func(t *testing.T) {
				skipUnsupported(t, v)
				a, err := tensor.FromSlice([]float64{1000, 1000}, tensor.Shape{2})
				require.NoError(t, err)
				b, err := tensor.FromSlice(tt.b, tensor.Shape{2})
				require.NoError(t, err)
				c := tensor.Full[float64](tensor.Shape{2}, 1200)

				var dst expr.Result[float64] = c
				if v.wrap {
					dst = indirect[float64]{c}
				}
				Div(v.ctx(), dst, expr.Add[float64](a, b))
				assert.InDeltaSlice(t, tt.want, c.Data(), 1e-12)
			})
		}
	}
}

func TestScenarioTranspositionFallback(t *testing.T) {
	// [[1 2 3] [4 5 6]] stored column-major.
	src, err := tensor.FromSlice([]float32{1, 4, 2, 5, 3, 6}, tensor.Shape{2, 3}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)
	ctx := context.Background()

	dst := tensor.New[float32](tensor.Shape{2, 3})
	Assign[float32](ctx, dst, src)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, dst.Data())
	assert.Equal(t, float32(4), dst.At(1, 0))

	sum := tensor.Full[float32](tensor.Shape{2, 3}, 10)
	Add[float32](ctx, sum, expr.Mul[float32](src, expr.NewScalar[float32](2)))
	assert.Equal(t, []float32{12, 14, 16, 18, 20, 22}, sum.Data())

	back := tensor.New[float32](tensor.Shape{2, 3}, tensor.WithOrder(traits.ColumnMajor))
	Assign[float32](ctx, back, dst)
	assert.Equal(t, src.Memory(), back.Data())
}

func TestMixedOrderOperands(t *testing.T) {
	// [[1 2 3] [4 5 6]] in both storage orders.
	row, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	col, err := tensor.FromSlice([]float64{1, 4, 2, 5, 3, 6}, tensor.Shape{2, 3}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)

	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			skipUnsupported(t, v)
			for _, src := range []expr.Expr[float64]{expr.Add[float64](col, row), expr.Add[float64](row, col)} {
				d := tensor.New[float64](tensor.Shape{2, 3})
				var dst expr.Result[float64] = d
				if v.wrap {
					dst = indirect[float64]{d}
				}
				Assign(v.ctx(), dst, src)
				assert.Equal(t, []float64{2, 4, 6, 8, 10, 12}, d.Data())
			}
		})
	}
}

func TestOneDimensionalOrderIsIrrelevant(t *testing.T) {
	src, err := tensor.FromSlice([]int32{1, 2, 3}, tensor.Shape{3}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)
	dst := tensor.New[int32](tensor.Shape{3})

	counters.Reset()
	Assign[int32](context.Background(), dst, src)
	assert.Equal(t, []int32{1, 2, 3}, dst.Data())
	assert.Equal(t, int64(1), counters.Get("eval:fast_copy"))
}

func TestIdempotentAssign(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			skipUnsupported(t, v)
			a := tensor.Full[float32](tensor.Shape{100}, 1.5)
			b := tensor.Full[float32](tensor.Shape{100}, 2)
			c := tensor.New[float32](tensor.Shape{100})
			var dst expr.Result[float32] = c
			if v.wrap {
				dst = indirect[float32]{c}
			}
			ctx := v.ctx()
			src := expr.Mul[float32](a, b)

			Assign(ctx, dst, src)
			first := append([]float32(nil), c.Data()...)
			Assign(ctx, dst, src)
			assert.Equal(t, first, c.Data())
		})
	}
}

func TestAliasDisablesStreaming(t *testing.T) {
	if !hasVectors() {
		t.Skip("no vector tier on this CPU")
	}
	cfg := baseConfig()
	cfg.CacheSize = 16
	ctx := config.With(context.Background(), cfg)

	const n = 256
	a := tensor.Full[float64](tensor.Shape{n}, 1)
	b := tensor.Full[float64](tensor.Shape{n}, 2)

	counters.Reset()
	Assign[float64](ctx, a, expr.Add[float64](a, b))
	assert.Zero(t, counters.Get("eval:stream"))
	assert.Equal(t, tensor.Full[float64](tensor.Shape{n}, 3).Memory(), a.Data())

	c := tensor.New[float64](tensor.Shape{n})
	Assign[float64](ctx, c, expr.Add[float64](a, b))
	assert.Equal(t, int64(1), counters.Get("eval:stream"))
	assert.Equal(t, tensor.Full[float64](tensor.Shape{n}, 5).Memory(), c.Data())
}

func TestCoherencyFlags(t *testing.T) {
	dev := emu.New()
	gpu := backend.WithDevice(context.Background(), dev)
	host := context.Background()

	a, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{4, 5, 6}, tensor.Shape{3})
	require.NoError(t, err)
	c := tensor.New[float32](tensor.Shape{3})

	counters.Reset()
	Assign[float32](gpu, c, expr.Add[float32](a, b))
	assert.Equal(t, tensor.DeviceValid, c.Coherency())
	assert.Equal(t, tensor.BothValid, a.Coherency())
	assert.Equal(t, []float32{0, 0, 0}, c.Memory())
	assert.Equal(t, int64(1), counters.Get("gpu:assign"))
	assert.Equal(t, int64(1), counters.Get("eval:accelerator"))

	// Host strategies download the device copy first.
	Add[float32](host, c, expr.Mul[float32](a, b))
	assert.Equal(t, tensor.HostValid, c.Coherency())
	assert.Equal(t, []float32{9, 17, 27}, c.Memory())

	// Compound accelerator ops upload the host copy first.
	Sub[float32](gpu, c, expr.NewScalar[float32](1))
	assert.Equal(t, tensor.DeviceValid, c.Coherency())
	assert.Equal(t, []float32{8, 16, 26}, c.Data())
	assert.Equal(t, tensor.BothValid, c.Coherency())
}

func TestViewWriteReachesDevice(t *testing.T) {
	dev := emu.New()
	accel := backend.WithDevice(withConfig(func(*config.Config) {})(), dev)
	host := withConfig(func(*config.Config) {})()

	d, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4})
	require.NoError(t, err)
	d.EnsureDevice(dev)

	src, err := tensor.FromSlice([]float32{10, 20, 30, 40}, tensor.Shape{2, 2})
	require.NoError(t, err)
	Assign[float32](host, d.Reshape(tensor.Shape{2, 2}), src)
	assert.Equal(t, tensor.HostValid, d.Coherency())

	out := tensor.New[float32](tensor.Shape{4})
	counters.Reset()
	Assign[float32](accel, out, expr.Add[float32](d, expr.NewScalar[float32](0)))
	assert.Equal(t, int64(1), counters.Get("eval:accelerator"))
	assert.Equal(t, []float32{10, 20, 30, 40}, out.Data())

	part := tensor.New[float32](tensor.Shape{4})
	part.EnsureDevice(dev)
	Assign[float32](accel, part.Slice(1, 3), expr.Add[float32](d.Slice(0, 2), expr.NewScalar[float32](1)))
	assert.Equal(t, []float32{0, 11, 21, 0}, part.Data())
}

func TestFastCopyKeepsDeviceSide(t *testing.T) {
	dev := emu.New()
	gpu := backend.WithDevice(context.Background(), dev)

	a := tensor.Full[float64](tensor.Shape{4}, 2)
	b := tensor.New[float64](tensor.Shape{4})
	Mul[float64](gpu, a, expr.NewScalar(3.0))
	require.Equal(t, tensor.DeviceValid, a.Coherency())

	counters.Reset()
	Assign[float64](context.Background(), b, a)
	assert.Equal(t, int64(1), counters.Get("eval:fast_copy"))
	assert.Equal(t, tensor.DeviceValid, b.Coherency())
	assert.Equal(t, []float64{6, 6, 6, 6}, b.Data())

	c := tensor.New[float64](tensor.Shape{4})
	Assign[float64](context.Background(), c, b)
	assert.Equal(t, tensor.HostValid, c.Coherency())
	assert.Equal(t, []float64{6, 6, 6, 6}, c.Data())
}

func TestSizeMismatchPanics(t *testing.T) {
	a := tensor.New[float32](tensor.Shape{2})
	b := tensor.New[float32](tensor.Shape{3})
	assert.PanicsWithValue(t, "assign: size mismatch: destination has 2 elements, source has 3", func() {
		Assign[float32](context.Background(), a, b)
	})
}

func TestScalarAssign(t *testing.T) {
	for _, v := range variants() {
		t.Run(v.name, func(t *testing.T) {
			skipUnsupported(t, v)
			c := tensor.New[float32](tensor.Shape{37})
			var dst expr.Result[float32] = c
			if v.wrap {
				dst = indirect[float32]{c}
			}
			Assign(v.ctx(), dst, expr.NewScalar[float32](7))
			assert.Equal(t, tensor.Full[float32](tensor.Shape{37}, 7).Memory(), c.Data())
		})
	}
}

func TestSequenceIsSingleThreaded(t *testing.T) {
	cfg := baseConfig()
	cfg.Parallel, cfg.Threads, cfg.ParallelThreshold = true, 8, 0
	ctx := config.With(context.Background(), cfg)

	d := tensor.New[int64](tensor.Shape{1000})
	Assign[int64](ctx, d, expr.NewSequence[int64](0, 1))
	for i, v := range d.Data() {
		require.Equal(t, int64(i), v)
	}
}

func TestModIsStandard(t *testing.T) {
	d, err := tensor.FromSlice([]float64{7.5, 9, -4}, tensor.Shape{3})
	require.NoError(t, err)
	counters.Reset()
	Mod[float64](context.Background(), d, expr.NewScalar(2.0))
	assert.Equal(t, []float64{1.5, 1, -0}, d.Data())
	assert.Equal(t, int64(1), counters.Get("eval:standard"))
}

func TestMisalignedViews(t *testing.T) {
	for _, v := range variants() {
		if v.floats {
			continue
		}
		for offset := 1; offset < 4; offset++ {
			t.Run(fmt.Sprintf("%s/%d", v.name, offset), func(t *testing.T) {
				skipUnsupported(t, v)
				const n = 29
				amem := make([]float32, n+offset)
				bmem := make([]float32, n+offset)
				cmem := make([]float32, n+offset)
				for i := range amem {
					amem[i], bmem[i], cmem[i] = float32(i), float32(2*i), 1200
				}
				a, err := tensor.Wrap(amem[offset:], tensor.Shape{n})
				require.NoError(t, err)
				b, err := tensor.Wrap(bmem[offset:], tensor.Shape{n})
				require.NoError(t, err)
				c, err := tensor.Wrap(cmem[offset:], tensor.Shape{n})
				require.NoError(t, err)

				var dst expr.Result[float32] = c
				if v.wrap {
					dst = indirect[float32]{c}
				}
				Sub(v.ctx(), dst, expr.Add[float32](a, b))
				for i := 0; i < n; i++ {
					j := i + offset
					require.Equal(t, float32(1200)-(amem[j]+bmem[j]), cmem[j], "index %d", i)
				}
				for i := 0; i < offset; i++ {
					require.Equal(t, float32(1200), cmem[i])
				}
			})
		}
	}
}

func TestConvert(t *testing.T) {
	src, err := tensor.FromSlice([]int32{1, -2, 3, 4}, tensor.Shape{2, 2}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)
	dst := tensor.New[float64](tensor.Shape{2, 2})

	Convert[float64, int32](context.Background(), dst, src)
	// Row-major [[1 3] [-2 4]].
	assert.Equal(t, []float64{1, 3, -2, 4}, dst.Data())

	narrow := tensor.New[int8](tensor.Shape{2, 2})
	Convert[int8, float64](context.Background(), narrow, expr.Mul[float64](dst, expr.NewScalar(2.5)))
	assert.Equal(t, []int8{2, 7, -5, 10}, narrow.Data())

	assert.Panics(t, func() {
		Convert[float32, int32](context.Background(), tensor.New[float32](tensor.Shape{3}), src)
	})
}

func TestAssignHalf(t *testing.T) {
	src, err := tensor.FromSlice([]float32{0.5, 1.0 / 3, 70000, -2}, tensor.Shape{2, 2}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)
	dst := tensor.NewHalf(tensor.Shape{2, 2})

	AssignHalf[float32](context.Background(), dst, src)
	got := dst.Float32s()
	want := []float32{0.5, 70000, 1.0 / 3, -2}
	assert.Equal(t, float32(0.5), got[0])
	assert.True(t, cmp.Equal(want[2], got[2], cmpopts.EquateApprox(1e-3, 0)))
	assert.Equal(t, uint16(0x7c00), dst.Bits(1), "values beyond the half range round to +Inf")
	assert.Equal(t, float32(-2), got[3])
}

func TestMaterializeAndForce(t *testing.T) {
	a, err := tensor.FromSlice([]int32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, tensor.WithOrder(traits.ColumnMajor))
	require.NoError(t, err)
	e := expr.Add[int32](a, expr.NewScalar[int32](1))
	Force[int32](context.Background(), e)

	m := Materialize[int32](context.Background(), e)
	assert.Equal(t, tensor.Shape{3, 2}, m.Dims())
	assert.Equal(t, traits.ColumnMajor, m.Order())
	assert.Equal(t, []int32{2, 3, 4, 5, 6, 7}, m.Data())
}

func TestParallelMatchesSequential(t *testing.T) {
	if !hasVectors() {
		t.Skip("no vector tier on this CPU")
	}
	const n = 10007
	cfg := baseConfig()
	seq := config.With(context.Background(), cfg)
	cfg.Parallel, cfg.Threads, cfg.ParallelThreshold = true, 7, 1
	par := config.With(context.Background(), cfg)

	a := tensor.New[float64](tensor.Shape{n})
	for i := range n {
		a.Set(i, float64(i%97)+0.25)
	}
	x := tensor.Full[float64](tensor.Shape{n}, 1)
	y := tensor.Full[float64](tensor.Shape{n}, 1)

	Div[float64](seq, x, expr.Add[float64](a, expr.NewScalar(1.0)))
	Div[float64](par, y, expr.Add[float64](a, expr.NewScalar(1.0)))
	assert.Equal(t, x.Data(), y.Data())
}
