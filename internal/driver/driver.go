package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/notargets/DGMaxwell/basis"
	"github.com/notargets/DGMaxwell/element"
	"github.com/notargets/DGMaxwell/integrators/maxwell"
	"github.com/notargets/DGMaxwell/internal/config"
	"github.com/notargets/DGMaxwell/quadrature"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Result is the element matrix of one cell
type Result struct {
	Cell      int
	Lower     []float64
	Upper     []float64
	Matrix    *mat.Dense
	Frobenius float64
	Symmetric bool
}

// Driver assembles element matrices for a row of equal boxes laid out along
// the x axis. Each cell gets its own matrix, so cells run concurrently.
type Driver struct {
	cfg       config.Config
	log       *zap.Logger
	trial     *basis.Space
	test      *basis.Space // curl operator only
	reference *quadrature.Rule
}

// New validates cfg and builds the shape function spaces
func New(cfg config.Config, log *zap.Logger) (*Driver, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	trial, err := basis.NewSpace(cfg.Dim, cfg.Dim, cfg.Degree)
	if err != nil {
		return nil, err
	}
	var ref *quadrature.Rule
	if cfg.Rule == config.RuleLobatto {
		ref, err = quadrature.GaussLobatto(cfg.Dim, cfg.QuadPoints)
	} else {
		ref, err = quadrature.GaussLegendre(cfg.Dim, cfg.QuadPoints)
	}
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Driver{
		cfg:       cfg,
		log:       log,
		trial:     trial,
		reference: ref,
	}
	if cfg.Operator == config.OpCurl {
		if d.test, err = basis.NewSpace(cfg.Dim, element.CurlComponents(cfg.Dim), cfg.Degree); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Space returns the trial space shared by all cells
func (d *Driver) Space() *basis.Space { return d.trial }

// Run assembles every cell and returns the results in cell order. The first
// failing cell cancels the rest.
func (d *Driver) Run(ctx context.Context) ([]Result, error) {
	start := time.Now()
	results := make([]Result, d.cfg.Cells)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for n := 0; n < d.cfg.Cells; n++ {
		n := n // per-iteration copy (Go <1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := d.AssembleCell(n)
			if err != nil {
				return fmt.Errorf("cell %d: %w", n, err)
			}
			results[n] = res
			d.log.Debug("assembled cell",
				zap.Int("cell", n),
				zap.Float64s("lower", res.Lower),
				zap.Float64s("upper", res.Upper),
				zap.Float64("frobenius", res.Frobenius),
				zap.Bool("symmetric", res.Symmetric))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.log.Error("assembly failed", zap.Error(err))
		return nil, err
	}

	d.log.Info("assembly complete",
		zap.String("operator", d.cfg.Operator),
		zap.String("rule", d.cfg.Rule),
		zap.Int("dim", d.cfg.Dim),
		zap.Int("dofs", d.trial.NDofs()),
		zap.Int("cells", d.cfg.Cells),
		zap.Int("workers", d.cfg.Workers),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// CellBox returns the corners of cell n
func (d *Driver) CellBox(n int) (lower, upper []float64) {
	lower = append([]float64(nil), d.cfg.Lower...)
	upper = append([]float64(nil), d.cfg.Upper...)
	width := upper[0] - lower[0]
	lower[0] += float64(n) * width
	upper[0] += float64(n) * width
	return
}

// AssembleCell computes the element matrix of cell n into a fresh matrix
func (d *Driver) AssembleCell(n int) (Result, error) {
	lower, upper := d.CellBox(n)
	res := Result{Cell: n, Lower: lower, Upper: upper}

	rows, cols := d.trial.NDofs(), d.trial.NDofs()
	if d.test != nil {
		rows = d.test.NDofs()
	}
	M := mat.NewDense(rows, cols, nil)

	var err error
	switch d.cfg.Operator {
	case config.OpCurlCurl:
		err = d.cellTerm(M, lower, upper)
	case config.OpCurl:
		err = d.curlTerm(M, lower, upper)
	case config.OpTrace, config.OpNitsche:
		err = d.faceTerms(M, lower, upper)
	case config.OpMaxwell:
		if err = d.cellTerm(M, lower, upper); err == nil {
			err = d.faceTerms(M, lower, upper)
		}
	}
	if err != nil {
		return res, err
	}

	res.Matrix = M
	res.Frobenius = floats.Norm(M.RawMatrix().Data, 2)
	res.Symmetric = rows == cols && mat.EqualApprox(M, M.T(), 1.e-12*(1+res.Frobenius))
	return res, nil
}

func (d *Driver) cellTerm(M *mat.Dense, lower, upper []float64) error {
	fe, err := d.cellValues(d.trial, lower, upper)
	if err != nil {
		return err
	}
	return maxwell.CurlCurlMatrix(M, fe, d.cfg.Factor)
}

func (d *Driver) curlTerm(M *mat.Dense, lower, upper []float64) error {
	fe, err := d.cellValues(d.trial, lower, upper)
	if err != nil {
		return err
	}
	feTest, err := d.cellValues(d.test, lower, upper)
	if err != nil {
		return err
	}
	return maxwell.CurlMatrix(M, fe, feTest, d.cfg.Factor)
}

// faceTerms adds the trace or Nitsche matrix of every face of the box
func (d *Driver) faceTerms(M *mat.Dense, lower, upper []float64) error {
	for axis := 0; axis < d.cfg.Dim; axis++ {
		for side := 0; side < 2; side++ {
			r, err := quadrature.BoxFace(lower, upper, axis, side, d.cfg.QuadPoints)
			if err != nil {
				return err
			}
			fe, err := d.trial.Tabulate(r, false)
			if err != nil {
				return err
			}
			if d.cfg.Operator == config.OpTrace {
				err = maxwell.TangentialTraceMatrix(M, fe, d.cfg.Factor)
			} else {
				err = maxwell.NitscheCurlMatrix(M, fe, d.cfg.Penalty, d.cfg.Factor)
			}
			if err != nil {
				return fmt.Errorf("face axis=%d side=%d: %w", axis, side, err)
			}
		}
	}
	return nil
}

func (d *Driver) cellValues(s *basis.Space, lower, upper []float64) (*element.QuadratureTable, error) {
	r, err := d.reference.MapToBox(lower, upper)
	if err != nil {
		return nil, err
	}
	return s.Tabulate(r, false)
}
