// Command maxwellcell assembles local curl-operator matrices on a row of box
// cells and prints them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/notargets/DGMaxwell/internal/config"
	"github.com/notargets/DGMaxwell/internal/driver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"
)

var (
	configPath string
	debug      bool
	printAll   bool
	cfg        = config.Default()
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "maxwellcell",
	Short: "Assemble local curl-curl and curl matrices on box cells",
	Long: `maxwellcell tabulates polynomial vector fields on a row of box cells and
assembles the selected curl operator on each cell concurrently.

Operators: curlcurl, curl, trace, nitsche, maxwell (curlcurl plus Nitsche
terms on every face).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &loaded)
			cfg = loaded
		}

		zcfg := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		if debug {
			level = zapcore.DebugLevel
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML run configuration")
	f.BoolVar(&debug, "debug", false, "log every cell")
	f.BoolVar(&printAll, "print", false, "print every element matrix, not only the first")
	f.IntVar(&cfg.Dim, "dim", cfg.Dim, "spatial dimension (2 or 3)")
	f.IntVar(&cfg.Degree, "degree", cfg.Degree, "polynomial degree of the vector fields")
	f.IntVar(&cfg.QuadPoints, "quad-points", cfg.QuadPoints, "Gauss points per direction")
	f.StringVar(&cfg.Rule, "rule", cfg.Rule, "cell quadrature rule (gauss or lobatto)")
	f.StringVar(&cfg.Operator, "operator", cfg.Operator, "operator to assemble")
	f.Float64Var(&cfg.Factor, "factor", cfg.Factor, "scale factor of the bilinear form")
	f.Float64Var(&cfg.Penalty, "penalty", cfg.Penalty, "Nitsche penalty")
	f.IntVar(&cfg.Cells, "cells", cfg.Cells, "number of cells")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "cells assembled concurrently")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
}

// applyFlags copies explicitly set flags over values loaded from a file
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("dim") {
		c.Dim = cfg.Dim
	}
	if f.Changed("degree") {
		c.Degree = cfg.Degree
	}
	if f.Changed("quad-points") {
		c.QuadPoints = cfg.QuadPoints
	}
	if f.Changed("rule") {
		c.Rule = cfg.Rule
	}
	if f.Changed("operator") {
		c.Operator = cfg.Operator
	}
	if f.Changed("factor") {
		c.Factor = cfg.Factor
	}
	if f.Changed("penalty") {
		c.Penalty = cfg.Penalty
	}
	if f.Changed("cells") {
		c.Cells = cfg.Cells
	}
	if f.Changed("workers") {
		c.Workers = cfg.Workers
	}
	if f.Changed("log-level") {
		c.LogLevel = cfg.LogLevel
	}
}

func run(cmd *cobra.Command, args []string) error {
	d, err := driver.New(cfg, logger)
	if err != nil {
		return err
	}
	results, err := d.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Shape functions (%d):\n", d.Space().NDofs())
	for i, f := range d.Space().Functions {
		fmt.Fprintf(out, "  %2d: %s\n", i, f)
	}
	for _, res := range results {
		if res.Cell > 0 && !printAll {
			break
		}
		fmt.Fprintf(out, "\nCell %d %v-%v  |M|_F = %.6e  symmetric = %v\n",
			res.Cell, res.Lower, res.Upper, res.Frobenius, res.Symmetric)
		fmt.Fprintf(out, "M = %.6g\n", mat.Formatted(res.Matrix, mat.Prefix("    "), mat.Squeeze()))
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
