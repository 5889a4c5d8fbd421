package element

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// QuadratureTable stores shape function data for one cell in flat slices.
// All storage is dof major: point data for dof i is contiguous.
type QuadratureTable struct {
	dim, nComp, nDofs, nQuad int

	jxw     []float64 // [nQuad]
	values  []float64 // [nDofs][nQuad][nComp]
	grads   []float64 // [nDofs][nQuad][nComp][dim]
	hess    []float64 // [nDofs][nQuad][nComp][dim][dim], allocated on first use
	normals []float64 // [nQuad][dim], allocated on first use
}

var _ Values = (*QuadratureTable)(nil)

// NewQuadratureTable allocates a zeroed table
func NewQuadratureTable(dim, nComponents, nDofs, nQuad int) (*QuadratureTable, error) {
	if err := Check(dim); err != nil {
		return nil, err
	}
	if nComponents <= 0 || nDofs <= 0 || nQuad < 0 {
		return nil, fmt.Errorf("invalid table sizes: components=%d, dofs=%d, points=%d: %w",
			nComponents, nDofs, nQuad, ErrDimensionMismatch)
	}
	n := nDofs * nQuad * nComponents
	return &QuadratureTable{
		dim:    dim,
		nComp:  nComponents,
		nDofs:  nDofs,
		nQuad:  nQuad,
		jxw:    make([]float64, nQuad),
		values: make([]float64, n),
		grads:  make([]float64, n*dim),
	}, nil
}

func (t *QuadratureTable) Dimensions() int        { return t.dim }
func (t *QuadratureTable) NComponents() int       { return t.nComp }
func (t *QuadratureTable) NDofs() int             { return t.nDofs }
func (t *QuadratureTable) NQuadraturePoints() int { return t.nQuad }
func (t *QuadratureTable) JxW(k int) float64      { return t.jxw[k] }

func (t *QuadratureTable) ShapeValue(i, k, c int) float64 {
	return t.values[t.offset(i, k, c)]
}

func (t *QuadratureTable) ShapeGrad(i, k, c, d int) float64 {
	return t.grads[t.offset(i, k, c)*t.dim+d]
}

func (t *QuadratureTable) ShapeHessian(i, k, c int) mat.Matrix {
	if t.hess == nil {
		return nil
	}
	dd := t.dim * t.dim
	o := t.offset(i, k, c) * dd
	return mat.NewDense(t.dim, t.dim, t.hess[o:o+dd:o+dd])
}

func (t *QuadratureTable) Normal(k int) mat.Vector {
	if t.normals == nil {
		return nil
	}
	o := k * t.dim
	return mat.NewVecDense(t.dim, t.normals[o:o+t.dim:o+t.dim])
}

// HasHessians reports whether second derivatives have been supplied
func (t *QuadratureTable) HasHessians() bool { return t.hess != nil }

// HasNormals reports whether the table carries face normals
func (t *QuadratureTable) HasNormals() bool { return t.normals != nil }

func (t *QuadratureTable) SetJxW(k int, w float64) error {
	if k < 0 || k >= t.nQuad {
		return fmt.Errorf("quadrature point %d out of range [0,%d): %w", k, t.nQuad, ErrDimensionMismatch)
	}
	t.jxw[k] = w
	return nil
}

func (t *QuadratureTable) SetShapeValue(i, k, c int, v float64) error {
	if err := t.checkIndex(i, k, c); err != nil {
		return err
	}
	t.values[t.offset(i, k, c)] = v
	return nil
}

// SetShapeGrad stores the gradient of component c of dof i at point k
func (t *QuadratureTable) SetShapeGrad(i, k, c int, grad []float64) error {
	if err := t.checkIndex(i, k, c); err != nil {
		return err
	}
	if len(grad) != t.dim {
		return Mismatch("gradient length", len(grad), t.dim)
	}
	copy(t.grads[t.offset(i, k, c)*t.dim:], grad)
	return nil
}

// SetShapeHessian stores the second derivative tensor of component c of dof i
// at point k. Symmetry is not enforced.
func (t *QuadratureTable) SetShapeHessian(i, k, c int, h mat.Matrix) error {
	if err := t.checkIndex(i, k, c); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("hessian is nil, expected %dx%d: %w", t.dim, t.dim, ErrDimensionMismatch)
	}
	if r, cc := h.Dims(); r != t.dim || cc != t.dim {
		return fmt.Errorf("hessian is %dx%d, expected %dx%d: %w", r, cc, t.dim, t.dim, ErrDimensionMismatch)
	}
	if t.hess == nil {
		t.hess = make([]float64, len(t.grads)*t.dim)
	}
	o := t.offset(i, k, c) * t.dim * t.dim
	for a := 0; a < t.dim; a++ {
		for b := 0; b < t.dim; b++ {
			t.hess[o+a*t.dim+b] = h.At(a, b)
		}
	}
	return nil
}

// SetNormal stores the unit normal at point k. The length is not normalized.
func (t *QuadratureTable) SetNormal(k int, n []float64) error {
	if k < 0 || k >= t.nQuad {
		return fmt.Errorf("quadrature point %d out of range [0,%d): %w", k, t.nQuad, ErrDimensionMismatch)
	}
	if len(n) != t.dim {
		return Mismatch("normal length", len(n), t.dim)
	}
	if t.normals == nil {
		t.normals = make([]float64, t.nQuad*t.dim)
	}
	copy(t.normals[k*t.dim:], n)
	return nil
}

// Split returns two independent tables holding points [0,k) and [k,n)
func (t *QuadratureTable) Split(k int) (head, tail *QuadratureTable, err error) {
	if k < 0 || k > t.nQuad {
		return nil, nil, fmt.Errorf("split point %d out of range [0,%d]: %w", k, t.nQuad, ErrDimensionMismatch)
	}
	head = t.slice(0, k)
	tail = t.slice(k, t.nQuad)
	return
}

func (t *QuadratureTable) slice(k0, k1 int) *QuadratureTable {
	nq := k1 - k0
	s := &QuadratureTable{
		dim:    t.dim,
		nComp:  t.nComp,
		nDofs:  t.nDofs,
		nQuad:  nq,
		jxw:    append([]float64(nil), t.jxw[k0:k1]...),
		values: make([]float64, t.nDofs*nq*t.nComp),
		grads:  make([]float64, t.nDofs*nq*t.nComp*t.dim),
	}
	if t.hess != nil {
		s.hess = make([]float64, len(s.grads)*t.dim)
	}
	if t.normals != nil {
		s.normals = append([]float64(nil), t.normals[k0*t.dim:k1*t.dim]...)
	}
	// Per dof, points k0..k1 are contiguous in every dof-major array
	for i := 0; i < t.nDofs; i++ {
		src, dst := t.offset(i, k0, 0), s.offset(i, 0, 0)
		n := nq * t.nComp
		copy(s.values[dst:dst+n], t.values[src:src+n])
		copy(s.grads[dst*t.dim:(dst+n)*t.dim], t.grads[src*t.dim:(src+n)*t.dim])
		if t.hess != nil {
			dd := t.dim * t.dim
			copy(s.hess[dst*dd:(dst+n)*dd], t.hess[src*dd:(src+n)*dd])
		}
	}
	return s
}

func (t *QuadratureTable) offset(i, k, c int) int {
	return (i*t.nQuad+k)*t.nComp + c
}

func (t *QuadratureTable) checkIndex(i, k, c int) error {
	if i < 0 || i >= t.nDofs || k < 0 || k >= t.nQuad || c < 0 || c >= t.nComp {
		return fmt.Errorf("index (dof=%d, point=%d, component=%d) outside table [%d,%d,%d]: %w",
			i, k, c, t.nDofs, t.nQuad, t.nComp, ErrDimensionMismatch)
	}
	return nil
}

// String returns a short summary of the table sizes
func (t *QuadratureTable) String() string {
	var sb strings.Builder
	sb.WriteString("=== QuadratureTable Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Dimensions: %v\n", Dimensionality(t.dim)))
	sb.WriteString(fmt.Sprintf("  Components: %d\n", t.nComp))
	sb.WriteString(fmt.Sprintf("  Dofs: %d\n", t.nDofs))
	sb.WriteString(fmt.Sprintf("  Quadrature points: %d\n", t.nQuad))
	sb.WriteString(fmt.Sprintf("  Second derivatives: %v\n", t.HasHessians()))
	sb.WriteString(fmt.Sprintf("  Face normals: %v\n", t.HasNormals()))
	return sb.String()
}
