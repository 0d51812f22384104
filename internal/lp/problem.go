// Package lp holds an explicit linear-program builder and a sparse
// interior-point solver for it.
//
// Programs are assembled on a Problem value that is threaded through every
// build step; there is no package-level model state, so independent problems
// can be built and solved concurrently.
package lp

import (
	"fmt"
	"math"
)

// Var identifies a decision variable within one Problem.
type Var int

// Sense is the relation of a constraint row.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	}
	return "?"
}

// Term is coef·var.
type Term struct {
	Var  Var
	Coef float64
}

// T is shorthand for Term{v, c}.
func T(v Var, c float64) Term { return Term{Var: v, Coef: c} }

// Row is one linear constraint Σ terms (sense) RHS.
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

type variable struct {
	name  string
	upper float64 // +Inf when unbounded above
}

// Problem is a minimisation LP over non-negative variables.
type Problem struct {
	vars      []variable
	objective map[Var]float64
	rows      []Row
}

func NewProblem() *Problem {
	return &Problem{objective: make(map[Var]float64)}
}

// AddVar declares a variable in [0, upper]. Pass math.Inf(1) for no upper bound.
func (p *Problem) AddVar(name string, upper float64) Var {
	if math.IsNaN(upper) || upper < 0 {
		upper = 0
	}
	p.vars = append(p.vars, variable{name: name, upper: upper})
	return Var(len(p.vars) - 1)
}

// AddVars declares n variables named prefix[i] sharing the same upper bound.
func (p *Problem) AddVars(prefix string, n int, upper float64) []Var {
	out := make([]Var, n)
	for i := range out {
		out[i] = p.AddVar(fmt.Sprintf("%s[%d]", prefix, i), upper)
	}
	return out
}

// AddConstraint appends a row. Terms referring to the same variable are summed.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	merged := make([]Term, 0, len(terms))
	index := make(map[Var]int, len(terms))
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(p.vars) {
			panic(fmt.Sprintf("lp: constraint %s references unknown variable %d", name, t.Var))
		}
		if i, ok := index[t.Var]; ok {
			merged[i].Coef += t.Coef
			continue
		}
		index[t.Var] = len(merged)
		merged = append(merged, t)
	}
	p.rows = append(p.rows, Row{Name: name, Terms: merged, Sense: sense, RHS: rhs})
}

// AddObjective adds coef·v to the minimised objective.
func (p *Problem) AddObjective(v Var, coef float64) {
	p.objective[v] += coef
}

func (p *Problem) NumVars() int { return len(p.vars) }
func (p *Problem) NumRows() int { return len(p.rows) }

// Name returns the declared name of v.
func (p *Problem) Name(v Var) string { return p.vars[v].name }

// Rows returns the constraint rows; callers must not modify them.
func (p *Problem) Rows() []Row { return p.rows }

// RowsWithPrefix counts rows whose name starts with prefix.
func (p *Problem) RowsWithPrefix(prefix string) int {
	n := 0
	for _, r := range p.rows {
		if len(r.Name) >= len(prefix) && r.Name[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// ObjectiveCoef returns the objective coefficient of v.
func (p *Problem) ObjectiveCoef(v Var) float64 { return p.objective[v] }

// Solution holds primal values of a solved Problem.
type Solution struct {
	Objective float64
	values    []float64
}

func (s *Solution) Value(v Var) float64 {
	if s == nil || int(v) < 0 || int(v) >= len(s.values) {
		return 0
	}
	return s.values[v]
}

// Values returns the values of vs in order; a nil slice yields nil.
func (s *Solution) Values(vs []Var) []float64 {
	if vs == nil {
		return nil
	}
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = s.Value(v)
	}
	return out
}
