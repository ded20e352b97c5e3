package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/modules/metrics"
	"github.com/aristath/reportdesk/internal/modules/reports"
)

func TestWriteWorkbook(t *testing.T) {
	snap := dashboard.Snapshot{
		Summary: dashboard.SummaryView{
			Cumulative: &metrics.StoreKPI{Label: "Tổng", RawRevenue: 1000, ConvertedRevenue: 1200, Target: 1000, CompletionPct: 120},
		},
		Target: dashboard.TargetView{Base: 1000, AdjustPct: 100, Value: 1000},
		Departments: dashboard.DepartmentView{
			Allocations: []allocation.DepartmentAllocation{
				{Department: "Tivi", WeightPct: 40, Target: 400, Headcount: 2, PerEmployee: 200},
			},
			Groups: []allocation.GroupAllocation{{Name: "Tivi", TargetPct: 0.4, CurrentPct: 0.5, Deviation: 0.1}},
		},
		Employees: []metrics.EmployeeKPI{
			{Identity: "Nguyễn Văn A - 12345", Department: "Tivi", ConvertedRevenue: 36, Target: 200, CompletionPct: 18},
		},
		Competition: dashboard.CompetitionScopes{
			Cumulative: &dashboard.CompetitionView{
				Label: "Tổng",
				Programs: []metrics.ProgramKPI{
					{Program: "Tivi", Criterion: reports.CriterionQuantity, Target: 10, Actual: 5, CompletionPct: 50},
					{Program: "Máy lạnh", Criterion: reports.CriterionRevenueConverted, Target: 100, Actual: 80, CompletionPct: 80},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, snap))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{
		SheetSummary, SheetIndustries, SheetDepartments, SheetEmployees, SheetCompetition, SheetInstallments,
	}, wb.GetSheetList())

	tests := []struct {
		name     string
		sheet    string
		expected [][]string
	}{
		{
			name:  "summary",
			sheet: SheetSummary,
			expected: [][]string{
				{"Lũy kế", "1000", "1200", "1000", "120"},
				{"Target tháng", "", "", "1000"},
			},
		},
		{
			name:     "departments",
			sheet:    SheetDepartments,
			expected: [][]string{{"Tivi", "40", "400", "2", "200", "0.5", "0.1"}},
		},
		{
			name:     "employees",
			sheet:    SheetEmployees,
			expected: [][]string{{"Nguyễn Văn A - 12345", "Tivi", "0", "36", "0", "200", "18"}},
		},
		{
			name:  "competition sorted by program",
			sheet: SheetCompetition,
			expected: [][]string{
				{"Máy lạnh", "Lũy kế", "Tổng", "revenue_converted", "100", "80", "80", "0"},
				{"Tivi", "Lũy kế", "Tổng", "quantity", "10", "5", "50", "0"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := wb.GetRows(tt.sheet)
			require.NoError(t, err)
			require.Len(t, rows, len(tt.expected)+1)
			for i, want := range tt.expected {
				assert.Equal(t, want, rows[i+1][:len(want)])
			}
		})
	}

	summary, err := wb.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "Diễn giải", summary[0][9])
	assert.Equal(t, "1.200 / 1.000 (120%)", summary[1][9])
	assert.Equal(t, "1.000 x 100%", summary[2][9])

	rows, err := wb.GetRows(SheetInstallments)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, reports.ColEmployee, rows[0][0])
}
