package quadrature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta on [-1,1]. Nodes are the eigenvalues of the
// symmetric Golub-Welsch matrix, returned in ascending order.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64, err error) {
	if N < 0 {
		return nil, nil, fmt.Errorf("negative quadrature order %d", N)
	}
	if N == 0 {
		return []float64{-(alpha - beta) / (alpha + beta + 2.)}, []float64{2.}, nil
	}

	h1 := make([]float64, N+1)
	for i := range h1 {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: d0[i] = -(α²-β²)/((2i+α+β)*(2i+α+β+2))
	d0 := make([]float64, N+1)
	fac := beta*beta - alpha*alpha
	for i, val := range h1 {
		d0[i] = fac / (val * (val + 2.))
	}
	if alpha+beta < 10*1.e-16 {
		d0[0] = 0.
	}

	// 1st upper diagonal
	d1 := make([]float64, N)
	for i := range d1 {
		ip1 := float64(i + 1)
		val := h1[i]
		d1[i] = 2.0 / (val + 2.0) * math.Sqrt(
			ip1*(ip1+alpha+beta)*(ip1+alpha)*(ip1+beta)/(val+1)/(val+3),
		)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(symTriDiagonal(d0, d1), true); !ok {
		return nil, nil, fmt.Errorf("eigenvalue decomposition failed for N=%d, alpha=%g, beta=%g", N, alpha, beta)
	}
	X = eig.Values(nil)

	var VVr mat.Dense
	eig.VectorsTo(&VVr)
	W = make([]float64, N+1)
	g0 := Gamma0(alpha, beta)
	for i := range W {
		v := VVr.At(0, i)
		W[i] = v * v * g0
	}
	return X, W, nil
}

// JacobiGL computes the N+1 Gauss-Lobatto nodes for the Jacobi weight: the
// endpoints plus the zeros of P'_N^{alpha,beta}
func JacobiGL(alpha, beta float64, N int) ([]float64, error) {
	switch {
	case N < 0:
		return nil, fmt.Errorf("negative quadrature order %d", N)
	case N == 0:
		return []float64{0.0}, nil
	case N == 1:
		return []float64{-1.0, 1.0}, nil
	}
	xint, _, err := JacobiGQ(alpha+1, beta+1, N-2)
	if err != nil {
		return nil, err
	}
	x := make([]float64, N+1)
	x[0] = -1.0
	copy(x[1:N], xint)
	x[N] = 1.0
	return x, nil
}

// JacobiP evaluates the orthonormal Jacobi polynomial of type (alpha,beta)
// and order n at each x
func JacobiP(x []float64, alpha, beta float64, n int) []float64 {
	Np := len(x)
	pm1 := make([]float64, Np)
	g0 := Gamma0(alpha, beta)
	for i := range pm1 {
		pm1[i] = 1.0 / math.Sqrt(g0)
	}
	if n == 0 {
		return pm1
	}

	p := make([]float64, Np)
	g1 := Gamma1(alpha, beta)
	for i := range p {
		p[i] = ((alpha+beta+2)*x[i]/2 + (alpha-beta)/2) / math.Sqrt(g1)
	}

	aold := 2.0 / (2.0 + alpha + beta) * math.Sqrt((alpha+1)*(beta+1)/(alpha+beta+3))
	for i := 1; i < n; i++ {
		fi := float64(i)
		h1 := 2*fi + alpha + beta
		anew := 2.0 / (h1 + 2) * math.Sqrt((fi+1)*(fi+1+alpha+beta)*
			(fi+1+alpha)*(fi+1+beta)/(h1+1)/(h1+3))
		bnew := -(alpha*alpha - beta*beta) / h1 / (h1 + 2)
		for j := range p {
			next := (-aold*pm1[j] + (x[j]-bnew)*p[j]) / anew
			pm1[j], p[j] = p[j], next
		}
		aold = anew
	}
	return p
}

func Gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

func Gamma1(alpha, beta float64) float64 {
	ab := alpha + beta
	a1 := alpha + 1.
	b1 := beta + 1.
	return a1 * b1 * Gamma0(alpha, beta) / (ab + 3.0)
}

func symTriDiagonal(d0, d1 []float64) *mat.SymDense {
	n := len(d0)
	tri := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		tri.SetSym(i, i, d0[i])
		if i < n-1 {
			tri.SetSym(i, i+1, d1[i])
		}
	}
	return tri
}
