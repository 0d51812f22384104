package lp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// denseThreshold is the entry count above which a row or column of A is
	// kept out of the banded part of the normal equations.
	denseThreshold = 16
	// A pivot that falls below pivotTol times its unreduced diagonal marks a
	// dependent row; the row is then dropped by giving it an infinite pivot.
	pivotTol   = 1e-14
	hugePivot  = 1e128
	refinement = 2
)

// normalSystem solves (A·Θ·Aᵀ)·dy = r for a fixed sparsity pattern of A and
// changing diagonal Θ. Columns with many entries are bordered instead of being
// multiplied out:
//
//	[ A_s·Θ_s·A_sᵀ   A_d    ] [dy]   [r]
//	[ A_dᵀ           -Θ_d⁻¹ ] [q ] = [0]
//
// The system is factored as L·D·Lᵀ in envelope storage. Sparse rows are
// ordered by reverse Cuthill-McKee, dense rows and the border come last.
type normalSystem struct {
	a       *csc
	m       int
	isDense []bool
	dense   []int // bordered columns

	perm  []int // position -> row, or m+k for bordered column k
	pos   []int // inverse of perm
	first []int // leftmost stored column of each envelope row
	start []int // offset of each envelope row in env

	env   []float64 // strictly lower part, K then L
	d     []float64
	diag  []float64 // diagonal of K before elimination
	theta []float64

	work, colBuf, res, corr, trial []float64
}

func newNormalSystem(a *csc) *normalSystem {
	m, n := a.m, a.n
	ns := &normalSystem{a: a, m: m, isDense: make([]bool, n)}
	for j := 0; j < n; j++ {
		if a.colLen(j) > denseThreshold {
			ns.isDense[j] = true
			ns.dense = append(ns.dense, j)
		}
	}

	// Row-wise pattern of the sparse columns.
	rowPtr := make([]int, m+1)
	for j := 0; j < n; j++ {
		if ns.isDense[j] {
			continue
		}
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			rowPtr[a.rowIdx[k]+1]++
		}
	}
	for i := 0; i < m; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	rowCols := make([]int, rowPtr[m])
	next := make([]int, m)
	copy(next, rowPtr[:m])
	for j := 0; j < n; j++ {
		if ns.isDense[j] {
			continue
		}
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			i := a.rowIdx[k]
			rowCols[next[i]] = j
			next[i]++
		}
	}
	denseRow := make([]bool, m)
	for i := 0; i < m; i++ {
		denseRow[i] = rowPtr[i+1]-rowPtr[i] > denseThreshold
	}

	// Adjacency of the sparse rows in A_s·A_sᵀ.
	adjPtr := make([]int, m+1)
	var adj []int
	mark := make([]int, m)
	for i := range mark {
		mark[i] = -1
	}
	for i := 0; i < m; i++ {
		if !denseRow[i] {
			mark[i] = i
			for _, j := range rowCols[rowPtr[i]:rowPtr[i+1]] {
				for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
					r := a.rowIdx[k]
					if !denseRow[r] && mark[r] != i {
						mark[r] = i
						adj = append(adj, r)
					}
				}
			}
		}
		adjPtr[i+1] = len(adj)
	}

	visited := make([]bool, m)
	copy(visited, denseRow)
	g := &graph{adjPtr: adjPtr, adj: adj, visited: visited, stamp: make([]int, m)}
	ns.perm = g.reverseCuthillMcKee()
	for i := 0; i < m; i++ {
		if denseRow[i] {
			ns.perm = append(ns.perm, i)
		}
	}
	for k := range ns.dense {
		ns.perm = append(ns.perm, m+k)
	}

	size := len(ns.perm)
	ns.pos = make([]int, size)
	for p, i := range ns.perm {
		ns.pos[i] = p
	}
	ns.first = make([]int, size)
	for p := range ns.first {
		ns.first[p] = p
	}
	for j := 0; j < n; j++ {
		if ns.isDense[j] {
			continue
		}
		lo := size
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			if p := ns.pos[a.rowIdx[k]]; p < lo {
				lo = p
			}
		}
		for k := a.colPtr[j]; k < a.colPtr[j+1]; k++ {
			if p := ns.pos[a.rowIdx[k]]; lo < ns.first[p] {
				ns.first[p] = lo
			}
		}
	}
	for k, j := range ns.dense {
		q := ns.pos[m+k]
		for i := a.colPtr[j]; i < a.colPtr[j+1]; i++ {
			if p := ns.pos[a.rowIdx[i]]; p < ns.first[q] {
				ns.first[q] = p
			}
		}
	}
	ns.start = make([]int, size)
	total := 0
	for p := range ns.start {
		ns.start[p] = total
		total += p - ns.first[p]
	}

	ns.env = make([]float64, total)
	ns.d = make([]float64, size)
	ns.diag = make([]float64, size)
	ns.theta = make([]float64, n)
	ns.work = make([]float64, size)
	ns.colBuf = make([]float64, n)
	ns.res = make([]float64, m)
	ns.corr = make([]float64, m)
	ns.trial = make([]float64, m)
	return ns
}

// factor assembles and factors the system for theta.
func (ns *normalSystem) factor(theta []float64) {
	a := ns.a
	copy(ns.theta, theta)
	for i := range ns.env {
		ns.env[i] = 0
	}
	for i := range ns.d {
		ns.d[i] = 0
	}

	for j := 0; j < a.n; j++ {
		t := theta[j]
		if ns.isDense[j] || t == 0 {
			continue
		}
		for k1 := a.colPtr[j]; k1 < a.colPtr[j+1]; k1++ {
			p1 := ns.pos[a.rowIdx[k1]]
			v1 := t * a.val[k1]
			ns.d[p1] += v1 * a.val[k1]
			for k2 := a.colPtr[j]; k2 < k1; k2++ {
				r, c := p1, ns.pos[a.rowIdx[k2]]
				if r < c {
					r, c = c, r
				}
				ns.env[ns.start[r]+c-ns.first[r]] += v1 * a.val[k2]
			}
		}
	}
	for k, j := range ns.dense {
		q := ns.pos[ns.m+k]
		t := theta[j]
		if t <= 0 {
			ns.d[q] = -1
			continue
		}
		ns.d[q] = -1 / t
		for i := a.colPtr[j]; i < a.colPtr[j+1]; i++ {
			p := ns.pos[a.rowIdx[i]]
			ns.env[ns.start[q]+p-ns.first[q]] += a.val[i]
		}
	}
	copy(ns.diag, ns.d)

	for r := range ns.d {
		fr := ns.first[r]
		row := ns.env[ns.start[r] : ns.start[r]+r-fr]
		// row[c-fr] becomes L[r][c]·d[c] first, then L[r][c].
		for c := fr; c < r; c++ {
			fc := ns.first[c]
			lo := fc
			if fr > lo {
				lo = fr
			}
			if lo < c {
				crow := ns.env[ns.start[c] : ns.start[c]+c-fc]
				row[c-fr] -= floats.Dot(row[lo-fr:c-fr], crow[lo-fc:c-fc])
			}
		}
		dr := ns.d[r]
		for c := fr; c < r; c++ {
			w := row[c-fr]
			l := w / ns.d[c]
			dr -= w * l
			row[c-fr] = l
		}
		ns.d[r] = ns.pivot(r, dr)
	}
}

func (ns *normalSystem) pivot(r int, dr float64) float64 {
	if math.IsNaN(dr) {
		return hugePivot
	}
	if ns.perm[r] < ns.m {
		if dr <= pivotTol*ns.diag[r] || dr <= 0 {
			return hugePivot
		}
		return dr
	}
	if dr >= pivotTol*ns.diag[r] || dr >= 0 {
		return -hugePivot
	}
	return dr
}

// solve sets dy to the solution for right-hand side r, refining against the
// unfactored product A·Θ·Aᵀ.
func (ns *normalSystem) solve(dy, r []float64) {
	ns.substitute(dy, r)
	best := ns.residual(dy, r)
	for k := 0; k < refinement && best > 0; k++ {
		ns.substitute(ns.corr, ns.res)
		copy(ns.trial, dy)
		floats.Add(ns.trial, ns.corr)
		n := ns.residual(ns.trial, r)
		if !(n < best) {
			return
		}
		copy(dy, ns.trial)
		best = n
	}
}

// residual stores r - A·Θ·Aᵀ·y in ns.res and returns its max norm.
func (ns *normalSystem) residual(y, r []float64) float64 {
	ns.a.mulTransVec(ns.colBuf, y)
	floats.Mul(ns.colBuf, ns.theta)
	ns.a.mulVec(ns.res, ns.colBuf)
	floats.SubTo(ns.res, r, ns.res)
	return floats.Norm(ns.res, math.Inf(1))
}

// substitute applies the factor to r.
func (ns *normalSystem) substitute(dy, r []float64) {
	w := ns.work
	for p, i := range ns.perm {
		if i < ns.m {
			w[p] = r[i]
		} else {
			w[p] = 0
		}
	}
	for p := range w {
		fp := ns.first[p]
		if fp < p {
			w[p] -= floats.Dot(ns.env[ns.start[p]:ns.start[p]+p-fp], w[fp:p])
		}
	}
	for p := range w {
		w[p] /= ns.d[p]
	}
	for p := len(w) - 1; p >= 0; p-- {
		fp := ns.first[p]
		if fp < p && w[p] != 0 {
			floats.AddScaled(w[fp:p], -w[p], ns.env[ns.start[p]:ns.start[p]+p-fp])
		}
	}
	for p, i := range ns.perm {
		if i < ns.m {
			dy[i] = w[p]
		}
	}
}

// graph is the row adjacency used for ordering. Rows already visited are
// skipped.
type graph struct {
	adjPtr  []int
	adj     []int
	visited []bool
	stamp   []int
	gen     int
	queue   []int
}

func (g *graph) degree(i int) int { return g.adjPtr[i+1] - g.adjPtr[i] }

// reverseCuthillMcKee orders every unvisited row, one connected component at a
// time, starting each from a pseudo-peripheral row.
func (g *graph) reverseCuthillMcKee() []int {
	m := len(g.visited)
	seeds := make([]int, 0, m)
	for i := 0; i < m; i++ {
		if !g.visited[i] {
			seeds = append(seeds, i)
		}
	}
	sort.SliceStable(seeds, func(a, b int) bool { return g.degree(seeds[a]) < g.degree(seeds[b]) })

	order := make([]int, 0, len(seeds))
	var nbrs []int
	for _, seed := range seeds {
		if g.visited[seed] {
			continue
		}
		root := g.peripheral(seed)
		head := len(order)
		order = append(order, root)
		g.visited[root] = true
		for ; head < len(order); head++ {
			u := order[head]
			nbrs = nbrs[:0]
			for _, v := range g.adj[g.adjPtr[u]:g.adjPtr[u+1]] {
				if !g.visited[v] {
					g.visited[v] = true
					nbrs = append(nbrs, v)
				}
			}
			sort.Slice(nbrs, func(a, b int) bool {
				da, db := g.degree(nbrs[a]), g.degree(nbrs[b])
				if da != db {
					return da < db
				}
				return nbrs[a] < nbrs[b]
			})
			order = append(order, nbrs...)
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// peripheral walks to a row of (near) maximal eccentricity in root's component.
func (g *graph) peripheral(root int) int {
	depth, last := g.levels(root)
	for iter := 0; iter < 8; iter++ {
		cand := last[0]
		for _, v := range last[1:] {
			if g.degree(v) < g.degree(cand) || (g.degree(v) == g.degree(cand) && v < cand) {
				cand = v
			}
		}
		d, l := g.levels(cand)
		if d <= depth {
			break
		}
		root, depth, last = cand, d, l
	}
	return root
}

// levels runs a breadth-first search from root over unvisited rows and
// returns its depth together with the rows of the deepest level.
func (g *graph) levels(root int) (int, []int) {
	g.gen++
	q := append(g.queue[:0], root)
	g.stamp[root] = g.gen
	depth, lastStart := 0, 0
	for head := 0; head < len(q); depth++ {
		end := len(q)
		lastStart = head
		for ; head < end; head++ {
			u := q[head]
			for _, v := range g.adj[g.adjPtr[u]:g.adjPtr[u+1]] {
				if !g.visited[v] && g.stamp[v] != g.gen {
					g.stamp[v] = g.gen
					q = append(q, v)
				}
			}
		}
	}
	g.queue = q
	last := make([]int, len(q)-lastStart)
	copy(last, q[lastStart:])
	return depth, last
}
