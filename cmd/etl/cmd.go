package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/born-ml/etl"
	"github.com/born-ml/etl/backend/emu"
	"github.com/born-ml/etl/backend/webgpu"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/traits"
	"github.com/born-ml/etl/tensor"
)

const version = "v0.1.0-dev"

func newRootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Tensor expression evaluation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.AddCommand(newVersionCmd(), newInfoCmd(), newBenchCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "etl version %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show vector tiers, configuration and devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return infoHandler(cmd.OutOrStdout())
		},
	}
}

func infoHandler(w io.Writer) error {
	cfg := config.FromEnv()
	fmt.Fprintf(w, "CPU vector tiers: %s\n", traits.Detect())
	fmt.Fprintf(w, "Enabled tiers:    %s\n\n", cfg.VectorModes())

	vars := config.AsMap()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := make([][]string, 0, len(keys))
	for _, k := range keys {
		v := vars[k]
		data = append(data, []string{v.Name, fmt.Sprint(v.Value), v.Description})
	}
	renderTable(w, []string{"VARIABLE", "VALUE", "DESCRIPTION"}, data)

	fmt.Fprintln(w)
	renderTable(w, []string{"DEVICE", "AVAILABLE"}, [][]string{
		{config.DeviceEmu, "yes"},
		{config.DeviceWebGPU, yesNo(webgpu.IsAvailable())},
	})
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func renderTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

type benchOptions struct {
	size  int
	iters int
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the evaluation strategies and matrix-product implementations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return benchHandler(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.size, "size", "n", 256, "Matrix dimension")
	cmd.Flags().IntVarP(&opts.iters, "iters", "i", 10, "Iterations per case")
	return cmd
}

type benchCase struct {
	name string
	run  func()
}

func benchHandler(ctx context.Context, w io.Writer, opts benchOptions) error {
	if opts.size < 1 || opts.iters < 1 {
		return errors.Errorf("size and iters must be positive, got %d and %d", opts.size, opts.iters)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dev := emu.New()
	defer dev.Close()

	n := opts.size
	shape := tensor.Shape{n, n}
	a := tensor.Full[float64](shape, 1.5)
	b := tensor.Full[float64](shape, 2)
	c := tensor.New[float64](shape)

	base := etl.DefaultConfig()
	with := func(f func(*etl.Config)) context.Context {
		cfg := base
		f(&cfg)
		return etl.WithConfig(ctx, cfg)
	}
	serial := with(func(c *etl.Config) { c.Parallel = false })
	scalarOnly := with(func(c *etl.Config) { c.Parallel, c.Vectorize = false, false })
	parallelCtx := with(func(c *etl.Config) { c.ParallelThreshold = 0 })
	accel := etl.WithDevice(serial, dev)

	sum := func(ctx context.Context, dst etl.Result[float64]) func() {
		return func() { etl.Assign[float64](ctx, dst, etl.Add[float64](a, b)) }
	}
	product := func(impl etl.GemmImpl) func() {
		ctx := etl.WithGemm(serial, impl)
		if impl == etl.GemmAccel {
			ctx = etl.WithGemm(accel, impl)
		}
		return func() { etl.Assign[float64](ctx, c, etl.MatMul[float64](a, b)) }
	}

	cases := []benchCase{
		{"assign/standard", sum(scalarOnly, etl.SubView[float64](c, 0, 0, n, n))},
		{"assign/direct", sum(scalarOnly, c)},
		{"assign/fast_copy", func() { etl.Assign[float64](serial, c, a) }},
		{"assign/vectorized", sum(serial, c)},
		{"assign/parallel", sum(parallelCtx, c)},
		{"assign/accelerator", sum(accel, c)},
		{"gemm/std", product(etl.GemmStd)},
		{"gemm/vec", product(etl.GemmVec)},
		{"gemm/blas", product(etl.GemmBLAS)},
		{"gemm/accel", product(etl.GemmAccel)},
	}
	if n&(n-1) == 0 {
		cases = append(cases, benchCase{"gemm/strassen", product(etl.GemmStrassen)})
	}

	data := make([][]string, 0, len(cases))
	for _, bc := range cases {
		bc.run()
		start := time.Now()
		for range opts.iters {
			bc.run()
		}
		per := time.Since(start) / time.Duration(opts.iters)
		data = append(data, []string{bc.name, per.String()})
	}

	fmt.Fprintf(w, "%dx%d float64, %d iterations\n\n", n, n, opts.iters)
	renderTable(w, []string{"CASE", "TIME/OP"}, data)
	return nil
}
