package model

import "errors"

// Error taxonomy shared by every stage of a run. Stages wrap these with
// context (combination key, series name) via fmt.Errorf("...: %w").
var (
	// ErrDataAlignment means input series cannot be reconciled to a common index.
	ErrDataAlignment = errors.New("data alignment error")
	// ErrInfeasible means the solver proved no feasible dispatch exists.
	ErrInfeasible = errors.New("infeasible")
	// ErrSolver covers every other solver-side failure (numerical, timeout, panic).
	ErrSolver = errors.New("solver error")
	// ErrConfiguration marks a malformed optional scenario parameter.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoCombinations is returned when a request enumerates zero combinations.
	ErrNoCombinations = errors.New("no combinations to evaluate")
	// ErrDemandCannotBeMet is returned when every attempted combination failed.
	ErrDemandCannotBeMet = errors.New("demand cannot be met by any combination")
)
