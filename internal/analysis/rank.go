package analysis

import (
	"sort"

	"hybrid-sizing/internal/model"
)

// RankByPerUnitCost sorts results ascending by per-unit cost, ties broken by key.
// Results whose cost is not finite go last.
func RankByPerUnitCost(results []model.OptimizationResult) []model.OptimizationResult {
	out := append([]model.OptimizationResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Comparable() != b.Comparable() {
			return a.Comparable()
		}
		if a.Comparable() && a.PerUnitCost != b.PerUnitCost {
			return a.PerUnitCost < b.PerUnitCost
		}
		return a.Key.String() < b.Key.String()
	})
	return out
}

// Top returns at most n leading results; n <= 0 returns all.
func Top(ranked []model.OptimizationResult, n int) []model.OptimizationResult {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
