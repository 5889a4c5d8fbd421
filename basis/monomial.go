package basis

import (
	"fmt"
	"strings"

	"github.com/notargets/DGMaxwell/element"
	"github.com/notargets/DGMaxwell/quadrature"
	"gonum.org/v1/gonum/mat"
)

// Function is the shape function x^E[0] * y^E[1] * z^E[2] times the unit
// vector of one field component
type Function struct {
	Exponents []int // length Dim
	Component int
}

// Space is a polynomial space of vector valued shape functions: every
// monomial of total degree at most Degree in every component
type Space struct {
	Dim         int
	NComponents int
	Degree      int
	Functions   []Function
}

// NewSpace builds the full polynomial space P_degree^nComponents in dim
// space dimensions
func NewSpace(dim, nComponents, degree int) (*Space, error) {
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if nComponents < 1 {
		return nil, fmt.Errorf("need at least one component, got %d: %w", nComponents, element.ErrDimensionMismatch)
	}
	if degree < 0 {
		return nil, fmt.Errorf("negative polynomial degree %d", degree)
	}
	exps := exponents(dim, degree)
	s := &Space{
		Dim:         dim,
		NComponents: nComponents,
		Degree:      degree,
		Functions:   make([]Function, 0, len(exps)*nComponents),
	}
	for c := 0; c < nComponents; c++ {
		for _, e := range exps {
			s.Functions = append(s.Functions, Function{Exponents: e, Component: c})
		}
	}
	return s, nil
}

// NDofs is the number of shape functions
func (s *Space) NDofs() int { return len(s.Functions) }

// Index returns the dof index of the monomial with exponents e in component
// c, or -1
func (s *Space) Index(e []int, c int) int {
	for i, f := range s.Functions {
		if f.Component != c || len(f.Exponents) != len(e) {
			continue
		}
		match := true
		for d := range e {
			if f.Exponents[d] != e[d] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Tabulate evaluates every shape function at the points of r. Hessians are
// stored when withHessians is set and normals when r is a face rule.
func (s *Space) Tabulate(r *quadrature.Rule, withHessians bool) (*element.QuadratureTable, error) {
	if r.Dim != s.Dim {
		return nil, element.Mismatch("rule dimension", r.Dim, s.Dim)
	}
	tab, err := element.NewQuadratureTable(s.Dim, s.NComponents, s.NDofs(), r.NPoints())
	if err != nil {
		return nil, err
	}
	grad := make([]float64, s.Dim)
	hess := mat.NewDense(s.Dim, s.Dim, nil)
	for k, p := range r.Points {
		if err = tab.SetJxW(k, r.Weights[k]); err != nil {
			return nil, err
		}
		if r.Normals != nil {
			if err = tab.SetNormal(k, r.Normals[k]); err != nil {
				return nil, err
			}
		}
		for i, f := range s.Functions {
			if err = tab.SetShapeValue(i, k, f.Component, monomialValue(p, f.Exponents)); err != nil {
				return nil, err
			}
			for d := range grad {
				grad[d] = monomialDerivative(p, f.Exponents, d)
			}
			if err = tab.SetShapeGrad(i, k, f.Component, grad); err != nil {
				return nil, err
			}
			if withHessians {
				for a := 0; a < s.Dim; a++ {
					for b := 0; b < s.Dim; b++ {
						hess.Set(a, b, monomialSecondDerivative(p, f.Exponents, a, b))
					}
				}
				if err = tab.SetShapeHessian(i, k, f.Component, hess); err != nil {
					return nil, err
				}
			}
		}
	}
	return tab, nil
}

// Gradient returns the coefficients, in this space, of the gradient of the
// scalar monomial with exponents e. Requires NComponents == Dim and a degree
// high enough to hold the result.
func (s *Space) Gradient(e []int) ([]float64, error) {
	if s.NComponents != s.Dim || len(e) != s.Dim {
		return nil, fmt.Errorf("gradient of a %d-variate monomial in a %d-component space: %w",
			len(e), s.NComponents, element.ErrDimensionMismatch)
	}
	coeffs := make([]float64, s.NDofs())
	for d := 0; d < s.Dim; d++ {
		if e[d] == 0 {
			continue
		}
		de := append([]int(nil), e...)
		de[d]--
		i := s.Index(de, d)
		if i < 0 {
			return nil, fmt.Errorf("derivative %v of component %d is outside the degree %d space", de, d, s.Degree)
		}
		coeffs[i] = float64(e[d])
	}
	return coeffs, nil
}

func (f Function) String() string {
	var sb strings.Builder
	vars := []string{"x", "y", "z"}
	for d, p := range f.Exponents {
		switch p {
		case 0:
		case 1:
			sb.WriteString(vars[d])
		default:
			sb.WriteString(fmt.Sprintf("%s^%d", vars[d], p))
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("1")
	}
	return fmt.Sprintf("%s e%d", sb.String(), f.Component)
}

// exponents lists all exponent tuples of total degree <= degree, ordered by
// total degree
func exponents(dim, degree int) (exps [][]int) {
	for total := 0; total <= degree; total++ {
		var rec func(prefix []int, left int)
		rec = func(prefix []int, left int) {
			if len(prefix) == dim-1 {
				exps = append(exps, append(append([]int(nil), prefix...), left))
				return
			}
			for p := left; p >= 0; p-- {
				rec(append(prefix, p), left-p)
			}
		}
		rec(make([]int, 0, dim), total)
	}
	return
}

// monomialValue evaluates Π x_d^e_d at p
func monomialValue(p []float64, e []int) float64 {
	result := 1.0
	for d, n := range e {
		result *= pow(p[d], n)
	}
	return result
}

// monomialDerivative computes ∂/∂x_deriv of the monomial at p
func monomialDerivative(p []float64, e []int, deriv int) float64 {
	if e[deriv] == 0 {
		return 0.0
	}
	de := append([]int(nil), e...)
	de[deriv]--
	return float64(e[deriv]) * monomialValue(p, de)
}

// monomialSecondDerivative computes ∂²/∂x_a∂x_b of the monomial at p
func monomialSecondDerivative(p []float64, e []int, a, b int) float64 {
	if e[a] == 0 {
		return 0.0
	}
	de := append([]int(nil), e...)
	de[a]--
	return float64(e[a]) * monomialDerivative(p, de, b)
}

// pow computes x^n for integer n >= 0
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}
