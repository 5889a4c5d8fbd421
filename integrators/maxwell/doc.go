// Package maxwell provides local integrators for curl operators and their
// traces on a single cell.
//
// In three dimensions the curl components are formed cyclically: component d
// pairs the directions d1 = (d+1) mod 3 and d2 = (d+2) mod 3 as
//
//	(∇×u)_d = ∂_{d1} u_{d2} - ∂_{d2} u_{d1}
//
// In two dimensions the same rule with d = 0 gives the single active
// component ∂_1 u_0 - ∂_0 u_1, which is the scalar curl with the sign
// exchanged. Bilinear forms pairing a curl with a curl are unaffected by the
// sign; CurlMatrix and the Nitsche terms carry it consistently.
//
// The assemblers add into a caller-owned gonum matrix and never reset it, so
// several forms can be summed into one element matrix. Input shapes are
// checked before the first write; a failed call leaves the matrix unchanged.
// Nothing here holds state between calls, so cells may be integrated
// concurrently as long as each goroutine owns its output matrix.
package maxwell
