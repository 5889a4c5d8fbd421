package maxwell

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/notargets/DGMaxwell/element"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tol = 1.e-12

// randomTable fills a table with reproducible random weights and shape data
func randomTable(t *testing.T, rng *rand.Rand, dim, nComp, nDofs, nQuad int) *element.QuadratureTable {
	t.Helper()
	tab, err := element.NewQuadratureTable(dim, nComp, nDofs, nQuad)
	require.NoError(t, err)
	for k := 0; k < nQuad; k++ {
		require.NoError(t, tab.SetJxW(k, rng.Float64()))
		for i := 0; i < nDofs; i++ {
			for c := 0; c < nComp; c++ {
				require.NoError(t, tab.SetShapeValue(i, k, c, rng.NormFloat64()))
				g := make([]float64, dim)
				for d := range g {
					g[d] = rng.NormFloat64()
				}
				require.NoError(t, tab.SetShapeGrad(i, k, c, g))
			}
		}
	}
	return tab
}

// referenceCurl writes out the active curl components of dof i at point k
// explicitly for each dimension
func referenceCurl(fe element.Values, i, k int) []float64 {
	g := func(c, d int) float64 { return fe.ShapeGrad(i, k, c, d) }
	switch fe.Dimensions() {
	case 2:
		return []float64{g(0, 1) - g(1, 0)}
	case 3:
		return []float64{
			g(2, 1) - g(1, 2),
			g(0, 2) - g(2, 0),
			g(1, 0) - g(0, 1),
		}
	}
	panic("unsupported dimension in test")
}

func referenceCurlCurl(fe element.Values, factor float64) *mat.Dense {
	n := fe.NDofs()
	M := mat.NewDense(n, n, nil)
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cv, cu := referenceCurl(fe, i, k), referenceCurl(fe, j, k)
				for d := range cu {
					M.Set(i, j, M.At(i, j)+factor*fe.JxW(k)*cu[d]*cv[d])
				}
			}
		}
	}
	return M
}

func assertMatrixInDelta(t *testing.T, want, got mat.Matrix, delta float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, []int{wr, wc}, []int{gr, gc})
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			assert.InDeltaf(t, want.At(i, j), got.At(i, j), delta, "entry (%d,%d)", i, j)
		}
	}
}

func TestCurlCurlMatrixSignConvention(t *testing.T) {
	// One point, two dofs in 2D: dof 0 has ∂0 u0 = 1, dof 1 has ∂0 u1 = 1
	tab, err := element.NewQuadratureTable(2, 2, 2, 1)
	require.NoError(t, err)
	require.NoError(t, tab.SetJxW(0, 1.0))
	require.NoError(t, tab.SetShapeGrad(0, 0, 0, []float64{1, 0}))
	require.NoError(t, tab.SetShapeGrad(1, 0, 1, []float64{1, 0}))

	M := mat.NewDense(2, 2, nil)
	require.NoError(t, CurlCurlMatrix(M, tab, DefaultFactor))
	assert.Equal(t, 0.0, M.At(0, 0))
	assert.Equal(t, 1.0, M.At(1, 1))
	assert.Equal(t, 0.0, M.At(0, 1))
	assert.Equal(t, 0.0, M.At(1, 0))
	assert.Equal(t, -1.0, curlComponent(tab, 1, 0, 0, 2))
}

func TestCurlCurlMatrixMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			tab := randomTable(t, rng, dim, dim, 6, 5)
			M := mat.NewDense(6, 6, nil)
			require.NoError(t, CurlCurlMatrix(M, tab, 2.5))
			assertMatrixInDelta(t, referenceCurlCurl(tab, 2.5), M, tol)
		})
	}
}

func TestCurlCurlMatrixProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, dim := range []int{2, 3} {
		tab := randomTable(t, rng, dim, dim, 8, 7)

		t.Run(fmt.Sprintf("symmetric/dim=%d", dim), func(t *testing.T) {
			M := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(M, tab, DefaultFactor))
			assertMatrixInDelta(t, M.T(), M, tol)
		})

		t.Run(fmt.Sprintf("linear in factor/dim=%d", dim), func(t *testing.T) {
			M1 := mat.NewDense(8, 8, nil)
			Mc := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(M1, tab, DefaultFactor))
			require.NoError(t, CurlCurlMatrix(Mc, tab, -3.25))
			var want mat.Dense
			want.Scale(-3.25, M1)
			assertMatrixInDelta(t, &want, Mc, 1.e-11)
		})

		t.Run(fmt.Sprintf("additive over points/dim=%d", dim), func(t *testing.T) {
			whole := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(whole, tab, DefaultFactor))

			head, tail, err := tab.Split(3)
			require.NoError(t, err)
			parts := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(parts, head, DefaultFactor))
			require.NoError(t, CurlCurlMatrix(parts, tail, DefaultFactor))
			assertMatrixInDelta(t, whole, parts, 1.e-11)
		})

		t.Run(fmt.Sprintf("accumulates/dim=%d", dim), func(t *testing.T) {
			M := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(M, tab, DefaultFactor))
			twice := mat.NewDense(8, 8, nil)
			require.NoError(t, CurlCurlMatrix(twice, tab, DefaultFactor))
			require.NoError(t, CurlCurlMatrix(twice, tab, DefaultFactor))
			var want mat.Dense
			want.Scale(2, M)
			assertMatrixInDelta(t, &want, twice, 1.e-11)
		})
	}
}

func TestCurlMatrixMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			fe := randomTable(t, rng, dim, dim, 5, 4)
			tComp := element.CurlComponents(dim)
			feTest := randomTable(t, rng, dim, tComp, 3, 4)

			M := mat.NewDense(3, 5, nil)
			require.NoError(t, CurlMatrix(M, fe, feTest, 0.5))

			want := mat.NewDense(3, 5, nil)
			for k := 0; k < 4; k++ {
				for i := 0; i < 3; i++ {
					for j := 0; j < 5; j++ {
						cu := referenceCurl(fe, j, k)
						for d := 0; d < tComp; d++ {
							want.Set(i, j, want.At(i, j)+0.5*fe.JxW(k)*cu[d]*feTest.ShapeValue(i, k, d))
						}
					}
				}
			}
			assertMatrixInDelta(t, want, M, tol)
		})
	}
}

func TestZeroGradientsGiveZeroMatrices(t *testing.T) {
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			fe, err := element.NewQuadratureTable(dim, dim, 4, 3)
			require.NoError(t, err)
			feTest, err := element.NewQuadratureTable(dim, element.CurlComponents(dim), 2, 3)
			require.NoError(t, err)
			for k := 0; k < 3; k++ {
				require.NoError(t, fe.SetJxW(k, 1))
				for i := 0; i < 4; i++ {
					require.NoError(t, fe.SetShapeValue(i, k, 0, 1))
				}
				for i := 0; i < 2; i++ {
					require.NoError(t, feTest.SetShapeValue(i, k, 0, 1))
				}
			}

			M := mat.NewDense(4, 4, nil)
			require.NoError(t, CurlCurlMatrix(M, fe, DefaultFactor))
			assert.True(t, mat.Equal(M, mat.NewDense(4, 4, nil)))

			C := mat.NewDense(2, 4, nil)
			require.NoError(t, CurlMatrix(C, fe, feTest, DefaultFactor))
			assert.True(t, mat.Equal(C, mat.NewDense(2, 4, nil)))
		})
	}
}

// wrongDim reports an arbitrary spatial dimension over valid table data
type wrongDim struct {
	*element.QuadratureTable
	dim int
}

func (w wrongDim) Dimensions() int { return w.dim }

func TestUnsupportedDimensionLeavesMatrixUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tab := randomTable(t, rng, 2, 2, 3, 2)
	for _, dim := range []int{0, 1, 4} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			fe := wrongDim{QuadratureTable: tab, dim: dim}
			M := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
			orig := mat.DenseCopyOf(M)

			assert.ErrorIs(t, CurlCurlMatrix(M, fe, DefaultFactor), element.ErrUnsupportedDimension)
			assert.ErrorIs(t, CurlMatrix(M, fe, fe, DefaultFactor), element.ErrUnsupportedDimension)
			assert.ErrorIs(t, TangentialTraceMatrix(M, fe, DefaultFactor), element.ErrUnsupportedDimension)
			assert.ErrorIs(t, NitscheCurlMatrix(M, fe, 1, DefaultFactor), element.ErrUnsupportedDimension)
			assert.True(t, mat.Equal(orig, M))
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	fe3 := randomTable(t, rng, 3, 3, 4, 2)

	t.Run("output not square", func(t *testing.T) {
		M := mat.NewDense(4, 3, nil)
		assert.ErrorIs(t, CurlCurlMatrix(M, fe3, DefaultFactor), element.ErrDimensionMismatch)
		assert.True(t, mat.Equal(M, mat.NewDense(4, 3, nil)))
	})
	t.Run("nil output", func(t *testing.T) {
		assert.ErrorIs(t, CurlCurlMatrix(nil, fe3, DefaultFactor), element.ErrDimensionMismatch)
		assert.ErrorIs(t, CurlCurlMatrix(&mat.Dense{}, fe3, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("field components", func(t *testing.T) {
		scalar := randomTable(t, rng, 3, 1, 4, 2)
		M := mat.NewDense(4, 4, nil)
		assert.ErrorIs(t, CurlCurlMatrix(M, scalar, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("curl test components", func(t *testing.T) {
		feTest := randomTable(t, rng, 3, 1, 2, 2)
		M := mat.NewDense(2, 4, nil)
		assert.ErrorIs(t, CurlMatrix(M, fe3, feTest, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("curl output shape", func(t *testing.T) {
		feTest := randomTable(t, rng, 3, 3, 2, 2)
		M := mat.NewDense(4, 2, nil)
		assert.ErrorIs(t, CurlMatrix(M, fe3, feTest, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("curl quadrature points", func(t *testing.T) {
		feTest := randomTable(t, rng, 3, 3, 2, 5)
		M := mat.NewDense(2, 4, nil)
		assert.ErrorIs(t, CurlMatrix(M, fe3, feTest, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("face operators need normals", func(t *testing.T) {
		M := mat.NewDense(4, 4, nil)
		assert.ErrorIs(t, TangentialTraceMatrix(M, fe3, DefaultFactor), element.ErrDimensionMismatch)
		assert.ErrorIs(t, NitscheCurlMatrix(M, fe3, 1, DefaultFactor), element.ErrDimensionMismatch)
	})
	t.Run("residual lengths", func(t *testing.T) {
		assert.ErrorIs(t, CurlCurlResidual(make([]float64, 3), fe3, make([]float64, 4), 1), element.ErrDimensionMismatch)
		assert.ErrorIs(t, CurlCurlResidual(make([]float64, 4), fe3, make([]float64, 5), 1), element.ErrDimensionMismatch)
	})
}

func withNormals(t *testing.T, rng *rand.Rand, tab *element.QuadratureTable) *element.QuadratureTable {
	t.Helper()
	dim := tab.Dimensions()
	for k := 0; k < tab.NQuadraturePoints(); k++ {
		n := mat.NewVecDense(dim, nil)
		for d := 0; d < dim; d++ {
			n.SetVec(d, rng.NormFloat64())
		}
		n.ScaleVec(1/mat.Norm(n, 2), n)
		require.NoError(t, tab.SetNormal(k, n.RawVector().Data))
	}
	return tab
}

func TestTangentialTraceMatrix(t *testing.T) {
	t.Run("single dof 3D", func(t *testing.T) {
		// u = e0 on a face with normal e1: u×n = e2, so ∫|u×n|² = JxW
		tab, err := element.NewQuadratureTable(3, 3, 1, 1)
		require.NoError(t, err)
		require.NoError(t, tab.SetJxW(0, 0.75))
		require.NoError(t, tab.SetShapeValue(0, 0, 0, 1))
		require.NoError(t, tab.SetNormal(0, []float64{0, 1, 0}))
		M := mat.NewDense(1, 1, nil)
		require.NoError(t, TangentialTraceMatrix(M, tab, DefaultFactor))
		assert.InDelta(t, 0.75, M.At(0, 0), tol)
	})
	t.Run("normal field has no trace", func(t *testing.T) {
		tab, err := element.NewQuadratureTable(2, 2, 1, 1)
		require.NoError(t, err)
		require.NoError(t, tab.SetJxW(0, 1))
		require.NoError(t, tab.SetShapeValue(0, 0, 0, 0.6))
		require.NoError(t, tab.SetShapeValue(0, 0, 1, 0.8))
		require.NoError(t, tab.SetNormal(0, []float64{0.6, 0.8}))
		M := mat.NewDense(1, 1, nil)
		require.NoError(t, TangentialTraceMatrix(M, tab, DefaultFactor))
		assert.InDelta(t, 0.0, M.At(0, 0), tol)
	})

	rng := rand.New(rand.NewSource(13))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("symmetric/dim=%d", dim), func(t *testing.T) {
			tab := withNormals(t, rng, randomTable(t, rng, dim, dim, 5, 3))
			M := mat.NewDense(5, 5, nil)
			require.NoError(t, TangentialTraceMatrix(M, tab, DefaultFactor))
			assertMatrixInDelta(t, M.T(), M, tol)
		})
	}
}

// referenceNitsche evaluates the Nitsche form with the standard curl and an
// explicit u×n. In 2D both are scalars along e_z.
func referenceNitsche(fe element.Values, penalty, factor float64) *mat.Dense {
	n := fe.NDofs()
	dim := fe.Dimensions()
	M := mat.NewDense(n, n, nil)
	curl := func(i, k int) []float64 {
		g := func(c, d int) float64 { return fe.ShapeGrad(i, k, c, d) }
		if dim == 2 {
			return []float64{g(1, 0) - g(0, 1)}
		}
		return []float64{g(2, 1) - g(1, 2), g(0, 2) - g(2, 0), g(1, 0) - g(0, 1)}
	}
	trace := func(i, k int) []float64 {
		u := make([]float64, 3)
		nv := make([]float64, 3)
		for d := 0; d < dim; d++ {
			u[d] = fe.ShapeValue(i, k, d)
			nv[d] = fe.Normal(k).AtVec(d)
		}
		x := cross(u, nv)
		if dim == 2 {
			return x[2:]
		}
		return x
	}
	dot := func(a, b []float64) (s float64) {
		for d := range a {
			s += a[d] * b[d]
		}
		return
	}
	for k := 0; k < fe.NQuadraturePoints(); k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				cv, cu := curl(i, k), curl(j, k)
				v, u := trace(i, k), trace(j, k)
				val := 2*penalty*dot(u, v) - dot(cv, u) - dot(cu, v)
				M.Set(i, j, M.At(i, j)+factor*fe.JxW(k)*val)
			}
		}
	}
	return M
}

func TestNitscheCurlMatrix(t *testing.T) {
	t.Run("single dof 3D", func(t *testing.T) {
		// u = (y, 0, 0) at a point on the face with normal e1:
		// ∇×u = (0, 0, -1), u×n = e2, so the form is 2γ + 2
		tab, err := element.NewQuadratureTable(3, 3, 1, 1)
		require.NoError(t, err)
		require.NoError(t, tab.SetJxW(0, 0.5))
		require.NoError(t, tab.SetShapeValue(0, 0, 0, 1))
		require.NoError(t, tab.SetShapeGrad(0, 0, 0, []float64{0, 1, 0}))
		require.NoError(t, tab.SetNormal(0, []float64{0, 1, 0}))
		M := mat.NewDense(1, 1, nil)
		require.NoError(t, NitscheCurlMatrix(M, tab, 3, DefaultFactor))
		assert.InDelta(t, 0.5*(2*3+2), M.At(0, 0), tol)
	})
	t.Run("single dof 2D", func(t *testing.T) {
		// u = (y, 0) with normal e1: curl_z = -1, (u×n)_z = 1
		tab, err := element.NewQuadratureTable(2, 2, 1, 1)
		require.NoError(t, err)
		require.NoError(t, tab.SetJxW(0, 2))
		require.NoError(t, tab.SetShapeValue(0, 0, 0, 1))
		require.NoError(t, tab.SetShapeGrad(0, 0, 0, []float64{0, 1}))
		require.NoError(t, tab.SetNormal(0, []float64{0, 1}))
		M := mat.NewDense(1, 1, nil)
		require.NoError(t, NitscheCurlMatrix(M, tab, 1, 0.5))
		assert.InDelta(t, 0.5*2*(2*1+2), M.At(0, 0), tol)
	})

	rng := rand.New(rand.NewSource(17))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			tab := withNormals(t, rng, randomTable(t, rng, dim, dim, 5, 3))
			const penalty = 4.0

			N := mat.NewDense(5, 5, nil)
			require.NoError(t, NitscheCurlMatrix(N, tab, penalty, DefaultFactor))
			assertMatrixInDelta(t, N.T(), N, tol)
			assertMatrixInDelta(t, referenceNitsche(tab, penalty, DefaultFactor), N, 1.e-11)

			scaled := mat.NewDense(5, 5, nil)
			require.NoError(t, NitscheCurlMatrix(scaled, tab, 0, -2))
			assertMatrixInDelta(t, referenceNitsche(tab, 0, -2), scaled, 1.e-11)

			// The penalty enters only through 2γ times the trace matrix
			N0 := mat.NewDense(5, 5, nil)
			require.NoError(t, NitscheCurlMatrix(N0, tab, 0, DefaultFactor))
			T := mat.NewDense(5, 5, nil)
			require.NoError(t, TangentialTraceMatrix(T, tab, 2*penalty))
			var diff mat.Dense
			diff.Sub(N, N0)
			assertMatrixInDelta(t, T, &diff, 1.e-11)
		})
	}
}

func TestCurlCurlResidualMatchesMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	for _, dim := range []int{2, 3} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			tab := randomTable(t, rng, dim, dim, 7, 6)
			M := mat.NewDense(7, 7, nil)
			require.NoError(t, CurlCurlMatrix(M, tab, 1.5))

			u := make([]float64, 7)
			for i := range u {
				u[i] = rng.NormFloat64()
			}
			var want mat.VecDense
			want.MulVec(M, mat.NewVecDense(7, u))

			got := make([]float64, 7)
			require.NoError(t, CurlCurlResidual(got, tab, u, 1.5))
			assert.InDeltaSlice(t, want.RawVector().Data, got, 1.e-11)
		})
	}
}
