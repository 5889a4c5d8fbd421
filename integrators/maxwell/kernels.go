package maxwell

import (
	"fmt"

	"github.com/notargets/DGMaxwell/element"
	"gonum.org/v1/gonum/mat"
)

// cyclic returns the two directions orthogonal to d in cyclic order,
// (d+1) mod dim and (d+2) mod dim. In 2D with d=0 this gives (1, 0).
func cyclic(d, dim int) (d1, d2 int) {
	return (d + 1) % dim, (d + 2) % dim
}

// activeComponents is the number of curl components summed by the
// assemblers: the curl is a scalar in 2D and a vector in 3D
func activeComponents(dim int) int {
	return element.CurlComponents(dim)
}

// CurlCurl computes ∇×∇×u from the second derivatives of u. h[c] is the
// [dim × dim] tensor of second partials of component c. In 2D only h[0] and
// h[1] are read; a third entry may be absent, nil or an alias of another.
//
//	2D: ( ∂0∂1 u1 - ∂1² u0,  ∂0∂1 u0 - ∂0² u1 )
//	3D: ( ∂0∂1 u1 + ∂0∂2 u2 - (∂1²+∂2²) u0, cyclic... )
func CurlCurl(dim int, h []mat.Matrix) (*mat.VecDense, error) {
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if err := checkTensors(dim, h); err != nil {
		return nil, err
	}
	result := mat.NewVecDense(dim, nil)
	switch dim {
	case 2:
		h0, h1 := h[0], h[1]
		result.SetVec(0, h1.At(0, 1)-h0.At(1, 1))
		result.SetVec(1, h0.At(0, 1)-h1.At(0, 0))
	case 3:
		// Component c: mixed partials of the two other components minus the
		// Laplacian of u_c restricted to the orthogonal directions
		for c := 0; c < 3; c++ {
			c1, c2 := cyclic(c, 3)
			hc, h1, h2 := h[c], h[c1], h[c2]
			result.SetVec(c, h1.At(c, c1)+h2.At(c, c2)-hc.At(c1, c1)-hc.At(c2, c2))
		}
	}
	return result, nil
}

// TangentialCurl computes n × (∇×u) from the gradients of u. g[c] is the
// gradient of component c and n the unit normal. In 2D u is extended by a
// zero third component, so the curl points out of plane and n × curl lies
// in the plane. The 2D third-entry rule of CurlCurl applies to g as well.
func TangentialCurl(dim int, g []mat.Vector, n mat.Vector) (*mat.VecDense, error) {
	if err := element.Check(dim); err != nil {
		return nil, err
	}
	if len(g) < dim {
		return nil, element.Mismatch("number of gradients", len(g), dim)
	}
	for c := 0; c < dim; c++ {
		if g[c] == nil {
			return nil, fmt.Errorf("gradient of component %d is nil: %w", c, element.ErrDimensionMismatch)
		}
		if g[c].Len() != dim {
			return nil, element.Mismatch(fmt.Sprintf("gradient %d length", c), g[c].Len(), dim)
		}
	}
	if n == nil {
		return nil, fmt.Errorf("normal is nil: %w", element.ErrDimensionMismatch)
	}
	if n.Len() != dim {
		return nil, element.Mismatch("normal length", n.Len(), dim)
	}

	result := mat.NewVecDense(dim, nil)
	switch dim {
	case 2:
		curl := g[1].AtVec(0) - g[0].AtVec(1)
		result.SetVec(0, n.AtVec(1)*curl)
		result.SetVec(1, -n.AtVec(0)*curl)
	case 3:
		var curl [3]float64
		for d := 0; d < 3; d++ {
			d1, d2 := cyclic(d, 3)
			curl[d] = g[d2].AtVec(d1) - g[d1].AtVec(d2)
		}
		for d := 0; d < 3; d++ {
			d1, d2 := cyclic(d, 3)
			result.SetVec(d, n.AtVec(d1)*curl[d2]-n.AtVec(d2)*curl[d1])
		}
	}
	return result, nil
}

func checkTensors(dim int, h []mat.Matrix) error {
	if len(h) < dim {
		return element.Mismatch("number of second derivative tensors", len(h), dim)
	}
	for c := 0; c < dim; c++ {
		if h[c] == nil {
			return fmt.Errorf("second derivative tensor %d is nil: %w", c, element.ErrDimensionMismatch)
		}
		if r, cc := h[c].Dims(); r != dim || cc != dim {
			return fmt.Errorf("second derivative tensor %d is %dx%d, expected %dx%d: %w",
				c, r, cc, dim, dim, element.ErrDimensionMismatch)
		}
	}
	return nil
}
