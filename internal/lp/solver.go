package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hybrid-sizing/internal/model"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultTolerance bounds the relative primal, dual and gap residuals at
	// convergence.
	DefaultTolerance = 1e-8
	// DefaultMaxIterations caps predictor-corrector steps per phase.
	DefaultMaxIterations = 200

	stepFactor = 0.9995
	blowUp     = 1e12
	minStep    = 1e-8
	maxStalls  = 5

	// phaseOneCost is the cost of original columns in the feasibility program.
	phaseOneCost = 1e-6
	// violationTol is the largest scaled artificial left at a phase-one optimum
	// of a feasible program.
	violationTol = 1e-6
	polishTol    = 1e-9
)

var errStalled = errors.New("interior point iteration did not converge")

// Solver solves a Problem. Implementations own all solver state; one Solver
// value may be shared by concurrent callers only if it documents so.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// InteriorPoint is a primal-dual predictor-corrector solver over the sparse
// normal equations. It keeps no state between calls and is safe for
// concurrent use.
type InteriorPoint struct {
	Tolerance     float64
	MaxIterations int
}

func NewInteriorPoint() *InteriorPoint {
	return &InteriorPoint{Tolerance: DefaultTolerance, MaxIterations: DefaultMaxIterations}
}

// Solve returns an optimal point of p. ctx is checked between iterations; a
// cancelled or expired ctx ends the solve with ErrSolver wrapping ctx.Err().
// A program whose constraints cannot be met returns ErrInfeasible.
func (s *InteriorPoint) Solve(ctx context.Context, p *Problem) (sol *Solution, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSolver, err)
	}
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = fmt.Errorf("%w: interior point panic: %v", model.ErrSolver, r)
		}
	}()

	cf, err := toCanonical(p)
	if err != nil {
		return nil, err
	}
	x, err := s.optimize(ctx, cf)
	if err != nil {
		return nil, err
	}
	values := cf.values(x)
	obj := 0.0
	for i, v := range values {
		obj += p.objective[Var(i)] * v
	}
	return &Solution{Objective: obj, values: values}, nil
}

func (s *InteriorPoint) optimize(ctx context.Context, cf *canonical) ([]float64, error) {
	if cf.a.n == 0 {
		return nil, nil
	}
	ns := newNormalSystem(cf.a)
	it, err := s.run(ctx, cf, ns)
	if err == nil {
		return polish(cf, ns, it), nil
	}
	if !errors.Is(err, errStalled) {
		return nil, err
	}

	phase1 := cf.withArtificials(phaseOneCost)
	fit, ferr := s.run(ctx, phase1, newNormalSystem(phase1.a))
	if ferr != nil {
		if errors.Is(ferr, errStalled) {
			return nil, fmt.Errorf("%w: %v", model.ErrSolver, ferr)
		}
		return nil, ferr
	}
	n := cf.a.n
	if worst := floats.Max(append([]float64{0}, fit.x[n:]...)); worst > violationTol {
		return nil, fmt.Errorf("%w: constraints violated by %.3g after minimising violation", model.ErrInfeasible, worst*cf.bScale)
	}
	return nil, fmt.Errorf("%w: %v; the program is feasible, so it is likely unbounded", model.ErrSolver, err)
}

// iterate is a primal-dual point: Ax + ... = b with x + w = upper on bounded
// columns, and Aᵀy + z - v = c.
type iterate struct {
	x, w, z, v []float64
	y          []float64
}

func newIterate(m, n int) *iterate {
	return &iterate{
		x: make([]float64, n), w: make([]float64, n),
		z: make([]float64, n), v: make([]float64, n),
		y: make([]float64, m),
	}
}

// state carries one run's buffers.
type state struct {
	cf      *canonical
	ns      *normalSystem
	bounded []bool
	nb      int

	it         *iterate
	aff, dir   *iterate
	theta      []float64
	rb, ru, rc []float64
	rxz, rwv   []float64
	rho, colN  []float64
	rowM       []float64
}

func (s *InteriorPoint) run(ctx context.Context, cf *canonical, ns *normalSystem) (*iterate, error) {
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	a := cf.a
	m, n := a.m, a.n
	st := &state{
		cf: cf, ns: ns, bounded: make([]bool, n),
		it: newIterate(m, n), aff: newIterate(m, n), dir: newIterate(m, n),
		theta: make([]float64, n),
		rb:    make([]float64, m), ru: make([]float64, n), rc: make([]float64, n),
		rxz: make([]float64, n), rwv: make([]float64, n),
		rho: make([]float64, n), colN: make([]float64, n), rowM: make([]float64, m),
	}
	uNorm := 1.0
	for j, u := range cf.upper {
		if !math.IsInf(u, 1) {
			st.bounded[j] = true
			st.nb++
			uNorm = math.Max(uNorm, 1+u)
		}
	}
	bNorm := 1 + floats.Norm(cf.b, math.Inf(1))
	cNorm := 1 + floats.Norm(cf.c, math.Inf(1))
	st.start()

	x, w, z, v, y := st.it.x, st.it.w, st.it.z, st.it.v, st.it.y
	pairs := float64(n + st.nb)
	stalls := 0
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrSolver, err)
		}

		a.mulVec(st.rb, x)
		floats.SubTo(st.rb, cf.b, st.rb)
		a.mulTransVec(st.rc, y)
		compl, dualBound := 0.0, 0.0
		for j := 0; j < n; j++ {
			st.rc[j] = cf.c[j] - st.rc[j] - z[j] + v[j]
			compl += x[j] * z[j]
			if st.bounded[j] {
				st.ru[j] = cf.upper[j] - x[j] - w[j]
				compl += w[j] * v[j]
				dualBound += cf.upper[j] * v[j]
			}
		}
		mu := compl / pairs
		pobj := floats.Dot(cf.c, x)
		dobj := floats.Dot(cf.b, y) - dualBound
		if floats.Norm(st.rb, math.Inf(1))/bNorm <= tol &&
			floats.Norm(st.ru, math.Inf(1))/uNorm <= tol &&
			floats.Norm(st.rc, math.Inf(1))/cNorm <= tol &&
			math.Abs(pobj-dobj)/(1+math.Abs(pobj)) <= tol {
			return st.it, nil
		}
		if floats.Norm(x, math.Inf(1)) > blowUp || floats.Norm(y, math.Inf(1)) > blowUp || math.IsNaN(mu) {
			return nil, errStalled
		}

		for j := 0; j < n; j++ {
			d := z[j] / x[j]
			if st.bounded[j] {
				d += v[j] / w[j]
			}
			st.theta[j] = 1 / d
		}
		ns.factor(st.theta)

		// Predictor.
		for j := 0; j < n; j++ {
			st.rxz[j] = -x[j] * z[j]
			st.rwv[j] = 0
			if st.bounded[j] {
				st.rwv[j] = -w[j] * v[j]
			}
		}
		st.newton(st.aff)
		ap, ad := st.steps(st.aff)
		ap, ad = math.Min(1, ap), math.Min(1, ad)
		muAff := 0.0
		for j := 0; j < n; j++ {
			muAff += (x[j] + ap*st.aff.x[j]) * (z[j] + ad*st.aff.z[j])
			if st.bounded[j] {
				muAff += (w[j] + ap*st.aff.w[j]) * (v[j] + ad*st.aff.v[j])
			}
		}
		muAff /= pairs
		sigma := math.Min(1, math.Pow(muAff/mu, 3))

		// Corrector.
		target := sigma * mu
		for j := 0; j < n; j++ {
			st.rxz[j] = target - x[j]*z[j] - st.aff.x[j]*st.aff.z[j]
			if st.bounded[j] {
				st.rwv[j] = target - w[j]*v[j] - st.aff.w[j]*st.aff.v[j]
			}
		}
		st.newton(st.dir)
		ap, ad = st.steps(st.dir)
		ap, ad = math.Min(1, stepFactor*ap), math.Min(1, stepFactor*ad)

		floats.AddScaled(x, ap, st.dir.x)
		floats.AddScaled(w, ap, st.dir.w)
		floats.AddScaled(y, ad, st.dir.y)
		floats.AddScaled(z, ad, st.dir.z)
		floats.AddScaled(v, ad, st.dir.v)

		if ap < minStep && ad < minStep {
			stalls++
			if stalls >= maxStalls {
				return nil, errStalled
			}
		} else {
			stalls = 0
		}
	}
	return nil, errStalled
}

// newton solves the linearised optimality conditions for the current
// residuals and complementarity targets rxz, rwv.
func (st *state) newton(d *iterate) {
	it := st.it
	a := st.cf.a
	for j := range st.rho {
		r := st.rc[j] - st.rxz[j]/it.x[j]
		if st.bounded[j] {
			r += (st.rwv[j] - it.v[j]*st.ru[j]) / it.w[j]
		}
		st.rho[j] = r
		st.colN[j] = st.theta[j] * r
	}
	a.mulVec(st.rowM, st.colN)
	floats.Add(st.rowM, st.rb)
	st.ns.solve(d.y, st.rowM)

	a.mulTransVec(d.x, d.y)
	for j := range d.x {
		dx := st.theta[j] * (d.x[j] - st.rho[j])
		d.x[j] = dx
		d.z[j] = (st.rxz[j] - it.z[j]*dx) / it.x[j]
		if st.bounded[j] {
			dw := st.ru[j] - dx
			d.w[j] = dw
			d.v[j] = (st.rwv[j] - it.v[j]*dw) / it.w[j]
		} else {
			d.w[j], d.v[j] = 0, 0
		}
	}
}

// steps returns the largest primal and dual step lengths that keep the
// iterate non-negative.
func (st *state) steps(d *iterate) (float64, float64) {
	it := st.it
	return math.Min(ratio(it.x, d.x), ratio(it.w, d.w)), math.Min(ratio(it.z, d.z), ratio(it.v, d.v))
}

func ratio(x, dx []float64) float64 {
	alpha := math.Inf(1)
	for j, d := range dx {
		if d < 0 {
			if r := -x[j] / d; r < alpha {
				alpha = r
			}
		}
	}
	return alpha
}

// start builds the initial point from least-squares estimates of the primal
// and dual solutions, shifted into the interior.
func (st *state) start() {
	cf, ns, it := st.cf, st.ns, st.it
	a := cf.a
	n := a.n
	for j := range st.theta {
		st.theta[j] = 1
	}
	ns.factor(st.theta)

	ns.solve(st.rowM, cf.b)
	a.mulTransVec(it.x, st.rowM)
	a.mulVec(st.rowM, cf.c)
	ns.solve(it.y, st.rowM)
	a.mulTransVec(st.colN, it.y)

	minP, minD := math.Inf(1), math.Inf(1)
	for j := 0; j < n; j++ {
		r := cf.c[j] - st.colN[j]
		if st.bounded[j] {
			it.w[j] = cf.upper[j] - it.x[j]
			it.z[j] = math.Max(r, 0)
			it.v[j] = math.Max(-r, 0)
			minP = math.Min(minP, it.w[j])
			minD = math.Min(minD, it.v[j])
		} else {
			it.z[j] = r
		}
		minP = math.Min(minP, it.x[j])
		minD = math.Min(minD, it.z[j])
	}
	st.shift(math.Max(-1.5*minP, 0), math.Max(-1.5*minD, 0))

	pd, sumP, sumD := 0.0, 0.0, 0.0
	for j := 0; j < n; j++ {
		pd += it.x[j] * it.z[j]
		sumP += it.x[j]
		sumD += it.z[j]
		if st.bounded[j] {
			pd += it.w[j] * it.v[j]
			sumP += it.w[j]
			sumD += it.v[j]
		}
	}
	dp, dd := 1.0, 1.0
	if pd > 0 && sumP > 0 && sumD > 0 {
		dp, dd = 0.5*pd/sumD, 0.5*pd/sumP
	}
	st.shift(dp, dd)

	const floor = 1e-6
	for j := 0; j < n; j++ {
		it.x[j] = math.Max(it.x[j], floor)
		it.z[j] = math.Max(it.z[j], floor)
		if st.bounded[j] {
			it.w[j] = math.Max(it.w[j], floor)
			it.v[j] = math.Max(it.v[j], floor)
		}
	}
}

func (st *state) shift(dp, dd float64) {
	it := st.it
	for j := range it.x {
		it.x[j] += dp
		it.z[j] += dd
		if st.bounded[j] {
			it.w[j] += dp
			it.v[j] += dd
		}
	}
}

// polish moves an interior optimum onto the face it identifies: columns that
// sit at a bound are set exactly to it and the rest absorb the change through
// a least-norm correction. The unpolished point is returned when the result
// would leave the bounds, the rows or the objective value.
func polish(cf *canonical, ns *normalSystem, it *iterate) []float64 {
	a := cf.a
	m, n := a.m, a.n
	x := make([]float64, n)
	copy(x, it.x)
	theta := make([]float64, n)
	for j := 0; j < n; j++ {
		bounded := !math.IsInf(cf.upper[j], 1)
		switch {
		case bounded && it.w[j] < it.v[j]:
			x[j] = cf.upper[j]
		case it.x[j] < it.z[j]:
			x[j] = 0
		default:
			theta[j] = 1
		}
	}

	ns.factor(theta)
	r := make([]float64, m)
	a.mulVec(r, x)
	floats.SubTo(r, cf.b, r)
	dy := make([]float64, m)
	ns.solve(dy, r)
	dx := make([]float64, n)
	a.mulTransVec(dx, dy)
	floats.Mul(dx, theta)
	floats.Add(x, dx)

	for j := 0; j < n; j++ {
		if x[j] < 0 {
			if x[j] < -polishTol {
				return it.x
			}
			x[j] = 0
		}
		if u := cf.upper[j]; x[j] > u {
			if x[j] > u+polishTol {
				return it.x
			}
			x[j] = u
		}
	}
	a.mulVec(r, x)
	floats.SubTo(r, cf.b, r)
	if floats.Norm(r, math.Inf(1)) > polishTol*(1+floats.Norm(cf.b, math.Inf(1))) {
		return it.x
	}
	before, after := floats.Dot(cf.c, it.x), floats.Dot(cf.c, x)
	if math.Abs(after-before) > 1e-6*(1+math.Abs(before)) {
		return it.x
	}
	return x
}
