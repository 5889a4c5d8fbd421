package element

import "gonum.org/v1/gonum/mat"

// Values is the per-cell view of shape function data at quadrature points,
// already mapped to physical space. It is read only; implementations must
// not change while an integrator is reading them.
//
// Index conventions used throughout:
//   - i: local degree of freedom, 0 <= i < NDofs()
//   - k: quadrature point, 0 <= k < NQuadraturePoints()
//   - c: vector component of the field, 0 <= c < NComponents()
//   - d: coordinate direction, 0 <= d < Dimensions()
type Values interface {
	// Dimensions is the spatial dimension of the cell
	Dimensions() int
	NComponents() int
	NDofs() int
	NQuadraturePoints() int

	// JxW is the quadrature weight multiplied by the Jacobian determinant
	// (or the surface Jacobian on faces). Its sign is not checked.
	JxW(k int) float64

	ShapeValue(i, k, c int) float64
	// ShapeGrad returns ∂u_c/∂x_d of dof i at point k
	ShapeGrad(i, k, c, d int) float64
	// ShapeHessian returns the [dim × dim] tensor ∂²u_c/∂x_a∂x_b of dof i at
	// point k, or nil when no second derivatives were supplied
	ShapeHessian(i, k, c int) mat.Matrix

	// Normal returns the unit outward normal at point k, or nil for cell
	// (non-face) data
	Normal(k int) mat.Vector
}
