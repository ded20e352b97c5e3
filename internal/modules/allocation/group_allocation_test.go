package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateByGroup(t *testing.T) {
	tests := []struct {
		name     string
		members  []MemberValue
		expected map[string]float64
	}{
		{
			name: "single member per department",
			members: []MemberValue{
				{Name: "A - 1", Department: "Tivi", Value: 100},
				{Name: "B - 2", Department: "Audio", Value: 50},
			},
			expected: map[string]float64{"Tivi": 100, "Audio": 50},
		},
		{
			name: "members are summed",
			members: []MemberValue{
				{Name: "A - 1", Department: "Tivi", Value: 100},
				{Name: "B - 2", Department: "Tivi", Value: 50},
			},
			expected: map[string]float64{"Tivi": 150},
		},
		{
			name: "member without department goes to Other",
			members: []MemberValue{
				{Name: "A - 1", Value: 10},
			},
			expected: map[string]float64{"Other": 10},
		},
		{
			name:     "no members",
			members:  nil,
			expected: map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, aggregateByGroup(tt.members))
		})
	}
}

func TestCalculateGroupAllocation(t *testing.T) {
	members := []MemberValue{
		{Name: "A - 1", Department: "Tivi", Value: 300},
		{Name: "B - 2", Department: "Audio", Value: 100},
	}
	targets := WeightSet{"Tivi": 50, "Audio": 30, "Gia dụng": 20}

	result := CalculateGroupAllocation(members, targets)

	require.Len(t, result, 3)
	assert.Equal(t, "Audio", result[0].Name)
	assert.Equal(t, 25.0, result[0].CurrentPct)
	assert.Equal(t, -5.0, result[0].Deviation)

	assert.Equal(t, "Gia dụng", result[1].Name)
	assert.Equal(t, 0.0, result[1].CurrentValue)
	assert.Equal(t, -20.0, result[1].Deviation)

	assert.Equal(t, "Tivi", result[2].Name)
	assert.Equal(t, 75.0, result[2].CurrentPct)
	assert.Equal(t, 25.0, result[2].Deviation)
}

func TestCalculateGroupAllocation_ZeroTotal(t *testing.T) {
	result := CalculateGroupAllocation(nil, WeightSet{"Tivi": 100})

	require.Len(t, result, 1)
	assert.Equal(t, 0.0, result[0].CurrentPct)
	assert.Equal(t, -100.0, result[0].Deviation)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, round(1.2345, 2))
	assert.Equal(t, 1.0, round(0.9999, 2))
	assert.Equal(t, -2.5, round(-2.5, 1))
}
