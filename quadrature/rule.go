package quadrature

import (
	"fmt"

	"github.com/notargets/DGMaxwell/element"
)

// Rule is a set of quadrature points and weights. On a face rule every point
// also carries the unit outward normal of that face.
type Rule struct {
	Dim     int
	Points  [][]float64 // [NPoints][Dim]
	Weights []float64   // [NPoints]
	Normals [][]float64 // [NPoints][Dim], nil for volume rules
}

func (r *Rule) NPoints() int { return len(r.Weights) }

// GaussLegendre returns the tensor product Gauss-Legendre rule with n points
// per direction on the reference box [-1,1]^dim. It is exact for polynomials
// of degree 2n-1 in each variable.
func GaussLegendre(dim, n int) (*Rule, error) {
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("need at least one point per direction, got %d", n)
	}
	x, w, err := JacobiGQ(0, 0, n-1)
	if err != nil {
		return nil, err
	}
	return tensorRule(dim, x, w), nil
}

// GaussLobatto returns the tensor product Gauss-Lobatto rule with n >= 2
// points per direction on [-1,1]^dim, including the box corners. It is exact
// for polynomials of degree 2n-3 in each variable.
func GaussLobatto(dim, n int) (*Rule, error) {
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("gauss-lobatto needs at least two points per direction, got %d", n)
	}
	N := n - 1
	x, err := JacobiGL(0, 0, N)
	if err != nil {
		return nil, err
	}
	// w_i = 2/(N(N+1) L_N(x_i)^2) with L_N = sqrt(2/(2N+1)) times the
	// orthonormal P_N
	p := JacobiP(x, 0, 0, N)
	w := make([]float64, n)
	fN := float64(N)
	for i := range w {
		w[i] = (2*fN + 1) / (fN * (fN + 1) * p[i] * p[i])
	}
	return tensorRule(dim, x, w), nil
}

func tensorRule(dim int, x, w []float64) *Rule {
	n := len(x)
	total := 1
	for d := 0; d < dim; d++ {
		total *= n
	}
	r := &Rule{
		Dim:     dim,
		Points:  make([][]float64, total),
		Weights: make([]float64, total),
	}
	for q := 0; q < total; q++ {
		p := make([]float64, dim)
		wq := 1.0
		idx := q
		for d := 0; d < dim; d++ {
			p[d] = x[idx%n]
			wq *= w[idx%n]
			idx /= n
		}
		r.Points[q] = p
		r.Weights[q] = wq
	}
	return r
}

// MapToBox maps a reference rule on [-1,1]^dim affinely onto the box
// [lower, upper]. The returned weights include the Jacobian determinant.
func (r *Rule) MapToBox(lower, upper []float64) (*Rule, error) {
	if len(lower) != r.Dim || len(upper) != r.Dim {
		return nil, fmt.Errorf("box corners have %d and %d coordinates, expected %d: %w",
			len(lower), len(upper), r.Dim, element.ErrDimensionMismatch)
	}
	half := make([]float64, r.Dim)
	J := 1.0
	for d := range half {
		if upper[d] <= lower[d] {
			return nil, fmt.Errorf("empty box in direction %d: [%g, %g]", d, lower[d], upper[d])
		}
		half[d] = (upper[d] - lower[d]) / 2
		J *= half[d]
	}
	mapped := &Rule{
		Dim:     r.Dim,
		Points:  make([][]float64, r.NPoints()),
		Weights: make([]float64, r.NPoints()),
		Normals: r.Normals,
	}
	for q, p := range r.Points {
		mp := make([]float64, r.Dim)
		for d := range mp {
			mp[d] = lower[d] + (p[d]+1)*half[d]
		}
		mapped.Points[q] = mp
		mapped.Weights[q] = r.Weights[q] * J
	}
	return mapped, nil
}

// BoxFace returns a Gauss-Legendre rule with n points per direction on the
// face of [lower, upper] orthogonal to axis, at the lower side (side=0) or
// the upper side (side=1). Weights include the surface Jacobian.
func BoxFace(lower, upper []float64, axis, side, n int) (*Rule, error) {
	dim := len(lower)
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if len(upper) != dim {
		return nil, fmt.Errorf("box corners have %d and %d coordinates: %w", dim, len(upper), element.ErrDimensionMismatch)
	}
	if axis < 0 || axis >= dim || (side != 0 && side != 1) {
		return nil, fmt.Errorf("no face axis=%d side=%d on a %dD box", axis, side, dim)
	}

	// 1D Gauss-Legendre along each tangential direction
	x, w, err := JacobiGQ(0, 0, n-1)
	if err != nil {
		return nil, err
	}
	tangential := make([]int, 0, dim-1)
	for d := 0; d < dim; d++ {
		if d != axis {
			tangential = append(tangential, d)
		}
	}
	total := 1
	for range tangential {
		total *= n
	}

	normal := make([]float64, dim)
	fixed := lower[axis]
	normal[axis] = -1
	if side == 1 {
		fixed = upper[axis]
		normal[axis] = 1
	}

	r := &Rule{
		Dim:     dim,
		Points:  make([][]float64, total),
		Weights: make([]float64, total),
		Normals: make([][]float64, total),
	}
	for q := 0; q < total; q++ {
		p := make([]float64, dim)
		p[axis] = fixed
		wq := 1.0
		idx := q
		for _, d := range tangential {
			half := (upper[d] - lower[d]) / 2
			p[d] = lower[d] + (x[idx%n]+1)*half
			wq *= w[idx%n] * half
			idx /= n
		}
		r.Points[q] = p
		r.Weights[q] = wq
		r.Normals[q] = normal
	}
	return r, nil
}
