package element

import (
	"errors"
	"fmt"
)

// Dimensionality represents the spatial dimension of a cell
type Dimensionality uint8

const (
	D2 Dimensionality = 2 // 2D cells (triangles, quadrilaterals)
	D3 Dimensionality = 3 // 3D cells (tetrahedra, hexahedra, etc.)
)

var (
	// ErrDimensionMismatch reports that component counts, dof counts or
	// matrix sizes do not agree with each other.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUnsupportedDimension reports a spatial dimension outside {2, 3}.
	ErrUnsupportedDimension = errors.New("unsupported dimension")
)

// Check returns nil for a supported spatial dimension
func Check(dim int) error {
	if dim == int(D2) || dim == int(D3) {
		return nil
	}
	return fmt.Errorf("spatial dimension %d: %w", dim, ErrUnsupportedDimension)
}

// CurlComponents is the number of components in the range of the curl of a
// dim-dimensional vector field: the curl is a scalar in 2D and a vector in 3D.
func CurlComponents(dim int) int {
	if dim == 2 {
		return 1
	}
	return dim
}

// Mismatch builds an ErrDimensionMismatch with the offending sizes
func Mismatch(what string, got, want int) error {
	return fmt.Errorf("%s is %d, expected %d: %w", what, got, want, ErrDimensionMismatch)
}

func (d Dimensionality) String() string {
	switch d {
	case D2:
		return "2D"
	case D3:
		return "3D"
	default:
		return fmt.Sprintf("Dimensionality(%d)", uint8(d))
	}
}
