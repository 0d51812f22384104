package lp

import (
	"fmt"
	"math"

	"hybrid-sizing/internal/model"

	"gonum.org/v1/gonum/floats"
)

// emptyRowTol is how far an empty row's rhs may sit from zero before the
// row is reported as violated.
const emptyRowTol = 1e-9

// csc is a compressed sparse column matrix. Row indices ascend within a column.
type csc struct {
	m, n   int
	colPtr []int
	rowIdx []int
	val    []float64
}

func (a *csc) colLen(j int) int { return a.colPtr[j+1] - a.colPtr[j] }

// mulVec sets dst = A·x.
func (a *csc) mulVec(dst, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j < a.n; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			dst[a.rowIdx[k]] += a.val[k] * xj
		}
	}
}

// mulTransVec sets dst = Aᵀ·y.
func (a *csc) mulTransVec(dst, y []float64) {
	for j := 0; j < a.n; j++ {
		s := 0.0
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			s += a.val[k] * y[a.rowIdx[k]]
		}
		dst[j] = s
	}
}

// canonical is min cᵀx s.t. Ax = b, 0 ≤ x ≤ upper, with b and upper divided
// by bScale and c by cScale. Inequality rows carry a slack column after the
// structural ones.
type canonical struct {
	a     *csc
	b     []float64
	c     []float64
	upper []float64 // +Inf when unbounded

	column []int     // column of each Problem variable, -1 when presolved away
	fixed  []float64 // unscaled value of presolved variables
	bScale float64
	cScale float64
}

type triplet struct {
	row, col int
	val      float64
}

// toCanonical presolves p. Variables with a zero upper bound are fixed at zero
// and variables that appear in no row are set to the bound their cost prefers.
// Empty rows are checked and dropped.
func toCanonical(p *Problem) (*canonical, error) {
	nv := len(p.vars)
	used := make([]int, nv)
	for _, r := range p.rows {
		if !finite(r.RHS) {
			return nil, fmt.Errorf("%w: row %s has non-finite rhs", model.ErrSolver, r.Name)
		}
		for _, t := range r.Terms {
			if !finite(t.Coef) {
				return nil, fmt.Errorf("%w: row %s has non-finite coefficient", model.ErrSolver, r.Name)
			}
			if t.Coef != 0 {
				used[t.Var]++
			}
		}
	}

	cf := &canonical{column: make([]int, nv), fixed: make([]float64, nv)}
	var upper, cost []float64
	for i, v := range p.vars {
		cf.column[i] = -1
		c := p.objective[Var(i)]
		if !finite(c) {
			return nil, fmt.Errorf("%w: %s has non-finite cost", model.ErrSolver, v.name)
		}
		switch {
		case v.upper <= 0:
		case used[i] == 0:
			if c < 0 {
				if math.IsInf(v.upper, 1) {
					return nil, fmt.Errorf("%w: unbounded: %s has negative cost and no upper bound", model.ErrSolver, v.name)
				}
				cf.fixed[i] = v.upper
			}
		default:
			cf.column[i] = len(upper)
			upper = append(upper, v.upper)
			cost = append(cost, c)
		}
	}

	var entries []triplet
	var b []float64
	for _, r := range p.rows {
		live := 0
		for _, t := range r.Terms {
			if t.Coef != 0 && cf.column[t.Var] >= 0 {
				live++
			}
		}
		if live == 0 {
			if emptyRowViolated(r.Sense, r.RHS) {
				return nil, fmt.Errorf("%w: row %s reduces to 0 %s %g", model.ErrInfeasible, r.Name, r.Sense, r.RHS)
			}
			continue
		}
		row := len(b)
		for _, t := range r.Terms {
			if t.Coef != 0 && cf.column[t.Var] >= 0 {
				entries = append(entries, triplet{row: row, col: cf.column[t.Var], val: t.Coef})
			}
		}
		switch r.Sense {
		case LE:
			entries = append(entries, triplet{row: row, col: len(upper), val: 1})
		case GE:
			entries = append(entries, triplet{row: row, col: len(upper), val: -1})
		}
		if r.Sense != EQ {
			upper = append(upper, math.Inf(1))
			cost = append(cost, 0)
		}
		b = append(b, r.RHS)
	}

	cf.a = compress(len(b), len(upper), entries)
	cf.b, cf.c, cf.upper = b, cost, upper
	cf.scale()
	return cf, nil
}

// compress builds a csc from triplets given in ascending row order.
func compress(m, n int, entries []triplet) *csc {
	a := &csc{m: m, n: n, colPtr: make([]int, n+1), rowIdx: make([]int, len(entries)), val: make([]float64, len(entries))}
	for _, e := range entries {
		a.colPtr[e.col+1]++
	}
	for j := 0; j < n; j++ {
		a.colPtr[j+1] += a.colPtr[j]
	}
	next := make([]int, n)
	copy(next, a.colPtr[:n])
	for _, e := range entries {
		k := next[e.col]
		a.rowIdx[k] = e.row
		a.val[k] = e.val
		next[e.col]++
	}
	return a
}

func (cf *canonical) scale() {
	cf.bScale = math.Max(1, floats.Norm(cf.b, math.Inf(1)))
	for _, u := range cf.upper {
		if !math.IsInf(u, 1) && u > cf.bScale {
			cf.bScale = u
		}
	}
	cf.cScale = math.Max(1, floats.Norm(cf.c, math.Inf(1)))
	floats.Scale(1/cf.bScale, cf.b)
	for j, u := range cf.upper {
		if !math.IsInf(u, 1) {
			cf.upper[j] = u / cf.bScale
		}
	}
	floats.Scale(1/cf.cScale, cf.c)
}

// values maps a scaled canonical point back onto the Problem's variables.
func (cf *canonical) values(x []float64) []float64 {
	out := make([]float64, len(cf.column))
	for i, col := range cf.column {
		if col < 0 {
			out[i] = cf.fixed[i]
			continue
		}
		out[i] = x[col] * cf.bScale
	}
	return out
}

// withArtificials returns the phase-one program min Σ(p+n) + δ·Σx subject to
// Ax + p - n = b. It is feasible by construction and its optimum is zero
// exactly when the original constraints can be met.
func (cf *canonical) withArtificials(delta float64) *canonical {
	a := cf.a
	m, n := a.m, a.n
	nnz := len(a.val)
	ext := &csc{
		m:      m,
		n:      n + 2*m,
		colPtr: make([]int, n+2*m+1),
		rowIdx: make([]int, nnz+2*m),
		val:    make([]float64, nnz+2*m),
	}
	copy(ext.colPtr, a.colPtr)
	copy(ext.rowIdx, a.rowIdx)
	copy(ext.val, a.val)
	k := nnz
	for i := 0; i < m; i++ {
		ext.rowIdx[k], ext.val[k] = i, 1
		ext.rowIdx[k+1], ext.val[k+1] = i, -1
		ext.colPtr[n+2*i+1] = k + 1
		ext.colPtr[n+2*i+2] = k + 2
		k += 2
	}

	c := make([]float64, n+2*m)
	upper := make([]float64, n+2*m)
	for j := range c {
		if j < n {
			c[j] = delta
			upper[j] = cf.upper[j]
			continue
		}
		c[j] = 1
		upper[j] = math.Inf(1)
	}
	return &canonical{a: ext, b: cf.b, c: c, upper: upper, bScale: cf.bScale, cScale: 1}
}

func emptyRowViolated(s Sense, rhs float64) bool {
	switch s {
	case LE:
		return rhs < -emptyRowTol
	case GE:
		return rhs > emptyRowTol
	}
	return math.Abs(rhs) > emptyRowTol
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
