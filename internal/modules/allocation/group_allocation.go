package allocation

import (
	"math"
	"sort"
)

// ungroupedName collects values of members without a department.
const ungroupedName = "Other"

// GroupAllocation compares a department's target weight with its actual share of revenue.
type GroupAllocation struct {
	Name         string  `json:"name"`
	TargetPct    float64 `json:"target_pct"`
	CurrentPct   float64 `json:"current_pct"`
	CurrentValue float64 `json:"current_value"`
	Deviation    float64 `json:"deviation"`
}

// MemberValue is one employee's contribution to its department.
type MemberValue struct {
	Name       string
	Department string
	Value      float64
}

// CalculateGroupAllocation aggregates member values by department and compares each
// department's share of the total with its target weight.
func CalculateGroupAllocation(members []MemberValue, targets WeightSet) []GroupAllocation {
	groupValues := aggregateByGroup(members)

	total := 0.0
	for _, v := range groupValues {
		total += v
	}

	return buildGroupAllocations(groupValues, targets, total)
}

// aggregateByGroup sums member values by department
func aggregateByGroup(members []MemberValue) map[string]float64 {
	groupValues := make(map[string]float64)
	for _, m := range members {
		group := m.Department
		if group == "" {
			group = ungroupedName
		}
		groupValues[group] += m.Value
	}
	return groupValues
}

// buildGroupAllocations creates GroupAllocation structs from group values and targets
func buildGroupAllocations(
	groupValues map[string]float64,
	groupTargets WeightSet,
	totalValue float64,
) []GroupAllocation {
	// Collect all group names (from both values and targets)
	groupNames := make(map[string]bool)
	for name := range groupValues {
		groupNames[name] = true
	}
	for name := range groupTargets {
		groupNames[name] = true
	}

	allocations := make([]GroupAllocation, 0, len(groupNames))
	for groupName := range groupNames {
		currentValue := groupValues[groupName]
		targetPct := groupTargets[groupName]

		var currentPct float64
		if totalValue > 0 {
			currentPct = currentValue / totalValue * 100
		}

		allocations = append(allocations, GroupAllocation{
			Name:         groupName,
			TargetPct:    round(targetPct, 4),
			CurrentPct:   round(currentPct, 4),
			CurrentValue: round(currentValue, 2),
			Deviation:    round(currentPct-targetPct, 4),
		})
	}

	// Sort by name for consistent output
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].Name < allocations[j].Name
	})

	return allocations
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
