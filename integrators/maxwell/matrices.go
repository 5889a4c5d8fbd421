package maxwell

import (
	"fmt"

	"github.com/notargets/DGMaxwell/element"
	"gonum.org/v1/gonum/mat"
)

// DefaultFactor is the scale of a plain, unweighted bilinear form
const DefaultFactor = 1.0

// CurlCurlMatrix adds the curl-curl operator
//
//	∫_Z (∇×u)·(∇×v) dx
//
// scaled by factor into M. fe must describe a vector field with
// fe.Dimensions() components and M must be [NDofs × NDofs]. M is never
// reset; on error it is left untouched.
func CurlCurlMatrix(M *mat.Dense, fe element.Values, factor float64) error {
	dim, err := checkVectorField("field", fe)
	if err != nil {
		return err
	}
	nDofs := fe.NDofs()
	if err = checkOutput(M, nDofs, nDofs); err != nil {
		return err
	}

	dMax := activeComponents(dim)
	curls := make([]float64, nDofs*dMax)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		dx := factor * fe.JxW(k)
		curlsAt(curls, fe, k, dim, dMax)
		for i := 0; i < nDofs; i++ {
			cv := curls[i*dMax : (i+1)*dMax]
			for j := 0; j < nDofs; j++ {
				cu := curls[j*dMax : (j+1)*dMax]
				var sum float64
				for d := 0; d < dMax; d++ {
					sum += cu[d] * cv[d]
				}
				M.Set(i, j, M.At(i, j)+dx*sum)
			}
		}
	}
	return nil
}

// CurlMatrix adds the curl operator
//
//	∫_Z (∇×u)·v dx
//
// scaled by factor into M. The trial field fe is a vector field; the test
// field feTest has one component in 2D (the scalar curl) and dim components
// in 3D. M must be [feTest.NDofs() × fe.NDofs()].
func CurlMatrix(M *mat.Dense, fe, feTest element.Values, factor float64) error {
	dim, err := checkVectorField("trial field", fe)
	if err != nil {
		return err
	}
	if feTest == nil {
		return fmt.Errorf("test field is nil: %w", element.ErrDimensionMismatch)
	}
	if feTest.Dimensions() != dim {
		return element.Mismatch("test field spatial dimension", feTest.Dimensions(), dim)
	}
	dMax := activeComponents(dim)
	if feTest.NComponents() != dMax {
		return element.Mismatch("test field components", feTest.NComponents(), dMax)
	}
	if feTest.NQuadraturePoints() != fe.NQuadraturePoints() {
		return element.Mismatch("test field quadrature points", feTest.NQuadraturePoints(), fe.NQuadraturePoints())
	}
	nDofs, tDofs := fe.NDofs(), feTest.NDofs()
	if err = checkOutput(M, tDofs, nDofs); err != nil {
		return err
	}

	curls := make([]float64, nDofs*dMax)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		dx := factor * fe.JxW(k)
		curlsAt(curls, fe, k, dim, dMax)
		for i := 0; i < tDofs; i++ {
			for j := 0; j < nDofs; j++ {
				cu := curls[j*dMax : (j+1)*dMax]
				var sum float64
				for d := 0; d < dMax; d++ {
					sum += cu[d] * feTest.ShapeValue(i, k, d)
				}
				M.Set(i, j, M.At(i, j)+dx*sum)
			}
		}
	}
	return nil
}

// TangentialTraceMatrix adds the face mass matrix of tangential traces
//
//	∫_F (u×n)·(v×n) ds
//
// scaled by factor into M. fe must carry normals.
func TangentialTraceMatrix(M *mat.Dense, fe element.Values, factor float64) error {
	dim, err := checkFaceField(fe)
	if err != nil {
		return err
	}
	nDofs := fe.NDofs()
	if err = checkOutput(M, nDofs, nDofs); err != nil {
		return err
	}

	dMax := activeComponents(dim)
	traces := make([]float64, nDofs*dMax)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		dx := factor * fe.JxW(k)
		tracesAt(traces, fe, k, dim, dMax)
		for i := 0; i < nDofs; i++ {
			v := traces[i*dMax : (i+1)*dMax]
			for j := 0; j < nDofs; j++ {
				u := traces[j*dMax : (j+1)*dMax]
				var sum float64
				for d := 0; d < dMax; d++ {
					sum += u[d] * v[d]
				}
				M.Set(i, j, M.At(i, j)+dx*sum)
			}
		}
	}
	return nil
}

// NitscheCurlMatrix adds the symmetric Nitsche terms that weakly impose a
// tangential boundary condition for the curl-curl operator
//
//	∫_F 2γ (u×n)·(v×n) - (∇×v)·(u×n) - (∇×u)·(v×n) ds
//
// with γ the penalty, scaled by factor.
func NitscheCurlMatrix(M *mat.Dense, fe element.Values, penalty, factor float64) error {
	dim, err := checkFaceField(fe)
	if err != nil {
		return err
	}
	nDofs := fe.NDofs()
	if err = checkOutput(M, nDofs, nDofs); err != nil {
		return err
	}

	dMax := activeComponents(dim)
	curls := make([]float64, nDofs*dMax)
	traces := make([]float64, nDofs*dMax)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		dx := factor * fe.JxW(k)
		curlsAt(curls, fe, k, dim, dMax)
		tracesAt(traces, fe, k, dim, dMax)
		for i := 0; i < nDofs; i++ {
			cv, v := curls[i*dMax:(i+1)*dMax], traces[i*dMax:(i+1)*dMax]
			for j := 0; j < nDofs; j++ {
				cu, u := curls[j*dMax:(j+1)*dMax], traces[j*dMax:(j+1)*dMax]
				var sum float64
				for d := 0; d < dMax; d++ {
					sum += 2*penalty*u[d]*v[d] - cv[d]*u[d] - cu[d]*v[d]
				}
				M.Set(i, j, M.At(i, j)+dx*sum)
			}
		}
	}
	return nil
}

// CurlCurlResidual adds the action of the curl-curl operator on the
// coefficient vector u to result, without forming the matrix:
//
//	result_i += factor Σ_k JxW_k (∇×φ_i)·(Σ_j u_j ∇×φ_j)
//
// The outcome equals CurlCurlMatrix applied to u.
func CurlCurlResidual(result []float64, fe element.Values, u []float64, factor float64) error {
	dim, err := checkVectorField("field", fe)
	if err != nil {
		return err
	}
	nDofs := fe.NDofs()
	if len(result) != nDofs {
		return element.Mismatch("result length", len(result), nDofs)
	}
	if len(u) != nDofs {
		return element.Mismatch("coefficient length", len(u), nDofs)
	}

	dMax := activeComponents(dim)
	curls := make([]float64, nDofs*dMax)
	uCurl := make([]float64, dMax)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		dx := factor * fe.JxW(k)
		curlsAt(curls, fe, k, dim, dMax)
		for d := range uCurl {
			uCurl[d] = 0
		}
		for j := 0; j < nDofs; j++ {
			for d := 0; d < dMax; d++ {
				uCurl[d] += u[j] * curls[j*dMax+d]
			}
		}
		for i := 0; i < nDofs; i++ {
			var sum float64
			for d := 0; d < dMax; d++ {
				sum += curls[i*dMax+d] * uCurl[d]
			}
			result[i] += dx * sum
		}
	}
	return nil
}

// curlComponent is the discrete curl component d of dof i at point k,
// ∂_{d1} u_{d2} - ∂_{d2} u_{d1}
func curlComponent(fe element.Values, i, k, d, dim int) float64 {
	d1, d2 := cyclic(d, dim)
	return fe.ShapeGrad(i, k, d2, d1) - fe.ShapeGrad(i, k, d1, d2)
}

// curlsAt fills buf[i*dMax+d] with the active curl components of every dof
// at point k
func curlsAt(buf []float64, fe element.Values, k, dim, dMax int) {
	for i := 0; i < fe.NDofs(); i++ {
		for d := 0; d < dMax; d++ {
			buf[i*dMax+d] = curlComponent(fe, i, k, d, dim)
		}
	}
}

// tracesAt fills buf[i*dMax+d] with the tangential components
// u_{d1} n_{d2} - u_{d2} n_{d1} of every dof at point k
func tracesAt(buf []float64, fe element.Values, k, dim, dMax int) {
	n := fe.Normal(k)
	for i := 0; i < fe.NDofs(); i++ {
		for d := 0; d < dMax; d++ {
			d1, d2 := cyclic(d, dim)
			buf[i*dMax+d] = fe.ShapeValue(i, k, d1)*n.AtVec(d2) - fe.ShapeValue(i, k, d2)*n.AtVec(d1)
		}
	}
}

func checkVectorField(name string, fe element.Values) (dim int, err error) {
	if fe == nil {
		return 0, fmt.Errorf("%s is nil: %w", name, element.ErrDimensionMismatch)
	}
	dim = fe.Dimensions()
	if err = element.Check(dim); err != nil {
		return 0, err
	}
	if fe.NComponents() != dim {
		return 0, element.Mismatch(name+" components", fe.NComponents(), dim)
	}
	return dim, nil
}

func checkFaceField(fe element.Values) (dim int, err error) {
	if dim, err = checkVectorField("face field", fe); err != nil {
		return 0, err
	}
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		n := fe.Normal(k)
		if n == nil {
			return 0, fmt.Errorf("face field has no normal at point %d: %w", k, element.ErrDimensionMismatch)
		}
		if n.Len() != dim {
			return 0, element.Mismatch("normal length", n.Len(), dim)
		}
	}
	return dim, nil
}

func checkOutput(M *mat.Dense, rows, cols int) error {
	if M == nil || M.IsEmpty() {
		return fmt.Errorf("output matrix is empty, expected %dx%d: %w", rows, cols, element.ErrDimensionMismatch)
	}
	if r, c := M.Dims(); r != rows || c != cols {
		return fmt.Errorf("output matrix is %dx%d, expected %dx%d: %w", r, c, rows, cols, element.ErrDimensionMismatch)
	}
	return nil
}
