package allocation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MaxAdjustPct caps the adjustment applied to a competition target.
const MaxAdjustPct = 300.0

// DefaultAdjustPct leaves a target unchanged.
const DefaultAdjustPct = 100.0

// Target is a base amount scaled by an adjustment percentage. Only the two inputs are
// persisted; the value is always derived.
type Target struct {
	Base      float64 `json:"base"`
	AdjustPct float64 `json:"adjust_pct"`
}

// Value returns Base x AdjustPct / 100.
func (t Target) Value() float64 {
	return t.Base * t.AdjustPct / 100
}

// SplitPerEmployee divides an allocated amount evenly among count employees.
func SplitPerEmployee(allocated float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return allocated / float64(count)
}

// ApportionCompetition distributes a competition target over employees. The adjusted
// total base x clamp(adjustPct, 0, 300) / 100 is split in proportion to each employee's
// weight (the weight of the employee's department) and normalized so the parts add up to
// the adjusted total. When every weight is zero the total is split evenly.
func ApportionCompetition(base, adjustPct float64, employeeWeights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(employeeWeights))
	if len(employeeWeights) == 0 {
		return out
	}

	total := base * clamp(adjustPct, 0, MaxAdjustPct) / 100
	if math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}

	ids := make([]string, 0, len(employeeWeights))
	for id := range employeeWeights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	weights := make([]float64, len(ids))
	for i, id := range ids {
		weights[i] = math.Max(0, employeeWeights[id])
	}

	sum := floats.Sum(weights)
	if sum <= 0 {
		for _, id := range ids {
			out[id] = total / float64(len(ids))
		}
		return out
	}

	floats.Scale(total/sum, weights)
	for i, id := range ids {
		out[id] = weights[i]
	}
	return out
}

// DepartmentAllocation is one department's part of a store target.
type DepartmentAllocation struct {
	Department  string  `json:"department"`
	WeightPct   float64 `json:"weight_pct"`
	Target      float64 `json:"target"`
	Headcount   int     `json:"headcount"`
	PerEmployee float64 `json:"per_employee"`
}

// DepartmentAllocations splits target over the departments of weights and then evenly
// over each department's employees.
func DepartmentAllocations(target float64, weights WeightSet, headcount map[string]int) []DepartmentAllocation {
	out := make([]DepartmentAllocation, 0, len(weights))
	for _, name := range weights.Names() {
		allocated := target * weights[name] / TotalPct
		out = append(out, DepartmentAllocation{
			Department:  name,
			WeightPct:   round(weights[name], 4),
			Target:      round(allocated, 2),
			Headcount:   headcount[name],
			PerEmployee: round(SplitPerEmployee(allocated, headcount[name]), 2),
		})
	}
	return out
}
