package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

var now = time.Date(2025, time.April, 11, 10, 0, 0, 0, time.UTC)

func TestBuildStoreKPI_TotalRow(t *testing.T) {
	raw := "Tên miền\tDTLK\tDTQĐ\tTarget (QĐ)\t% HT Target (QĐ)\nTổng\t1000\t1200\t1000\t120%"
	table := reports.ParseFlatTable(raw, reports.LayoutFor(reports.KindSummaryCumulative, nil))
	require.Len(t, table.Rows, 1)

	kpi, ok := BuildStoreKPI(table, "", false, 0, now)

	require.True(t, ok)
	assert.InDelta(t, 0.2, kpi.Efficiency, 1e-9)
	assert.InDelta(t, 120.0, kpi.CompletionPct, 1e-9)
	assert.InDelta(t, 120.0, kpi.ReportedCompletion, 1e-9)
	assert.InDelta(t, 1000.0/30, kpi.DailyTarget, 1e-9)
	assert.InDelta(t, 3600.0, kpi.ProjectedMonthEnd, 1e-9)
	assert.InDelta(t, 360.0, kpi.ProjectedCompletion, 1e-9)
}

func TestBuildStoreKPI_StoreRowAndOverride(t *testing.T) {
	raw := "Tên miền\tDT Realtime\tDTQĐ Realtime\tTarget Ngày (QĐ)\t% HT Target Ngày (QĐ)\n" +
		"Tổng\t100\t100\t100\t100%\n" +
		"ĐMX_HCM_1 - Quận 1\t50\t60\t40\t150%"
	table := reports.ParseFlatTable(raw, reports.LayoutFor(reports.KindSummaryRealtime, nil))

	kpi, ok := BuildStoreKPI(table, "ĐMX_HCM_1", true, 0, now)
	require.True(t, ok)
	assert.Equal(t, "ĐMX_HCM_1 - Quận 1", kpi.Label)
	assert.InDelta(t, 150.0, kpi.CompletionPct, 1e-9)
	assert.Equal(t, 40.0, kpi.DailyTarget)
	assert.Zero(t, kpi.ProjectedMonthEnd)

	kpi, _ = BuildStoreKPI(table, "ĐMX_HCM_1", true, 120, now)
	assert.InDelta(t, 50.0, kpi.CompletionPct, 1e-9)

	_, ok = BuildStoreKPI(table, "ĐMX_HCM_2", true, 0, now)
	assert.False(t, ok)
}

func TestBuildIndustryKPIs(t *testing.T) {
	raw := "Nhóm ngành hàng\tSLLK\tDTLK\tDTQĐ\nTổng\t10\t100\t150\nTivi\t4\t25\t50\nMáy lạnh\t6\t75\t100"
	table := reports.ParseFlatTable(raw, reports.LayoutFor(reports.KindIndustryCumulative, nil))

	kpis := BuildIndustryKPIs(table, false)

	require.Len(t, kpis, 2)
	assert.Equal(t, "Máy lạnh", kpis[0].Group)
	assert.InDelta(t, 200.0/3, kpis[0].SharePct, 1e-9)
	assert.InDelta(t, 1.0, kpis[1].Efficiency, 1e-9)
	assert.Equal(t, 4.0, kpis[1].Quantity)
}

func TestBuildInstallmentKPIs(t *testing.T) {
	raw := "Nhân viên\tSL Trả góp\tDT Trả góp\tTỷ lệ Trả góp\n" +
		"Tổng\t3\t30\t30%\n" +
		"Trần B - 2\t1\t10\t10%\n" +
		"Nguyễn A - 1\t2\t20\t40%\n" +
		"Người Lạ - 9\t1\t1\t1%"
	table := reports.ParseFlatTable(raw, reports.LayoutFor(reports.KindInstallment, nil))

	resolve := func(label string) (string, string, bool) {
		switch reports.NormalizeIdentity(label) {
		case "Nguyễn A - 1":
			return "Nguyễn A - 1", "Tivi", true
		case "Trần B - 2":
			return "Trần B - 2", "Audio", true
		}
		return "", "", false
	}

	kpis := BuildInstallmentKPIs(table, resolve)

	require.Len(t, kpis, 2)
	assert.Equal(t, InstallmentKPI{Identity: "Nguyễn A - 1", DisplayName: "Nguyễn A", Department: "Tivi", Count: 2, Revenue: 20, RatePct: 40}, kpis[0])
	assert.Equal(t, "Trần B - 2", kpis[1].Identity)

	assert.Len(t, BuildInstallmentKPIs(table, nil), 3)
}

func TestBuildEmployeeKPIs(t *testing.T) {
	raw := "Nhân viên\tDTLK\tDTQĐ\tHiệu quả QĐ\nBP Tivi\nNguyễn A - 1\t100\t150\t50%"
	table := reports.ParseFlatTable(raw, reports.LayoutFor(reports.KindEmployeeList, nil))

	kpis := BuildEmployeeKPIs(table, nil)

	require.Len(t, kpis, 1)
	assert.Equal(t, "Nguyễn A", kpis[0].DisplayName)
	assert.InDelta(t, 0.5, kpis[0].Efficiency, 1e-9)
}

func TestCompositeCompletion(t *testing.T) {
	programs := []reports.CompetitionProgram{
		{Name: "A", Criterion: reports.CriterionRevenueRaw, Values: []string{"100", "50", "50%"}},
		{Name: "B", Criterion: reports.CriterionQuantity, Values: []string{"10", "10", "100%"}},
		{Name: "C", Criterion: reports.CriterionQuantity, Values: []string{"0", "3", ""}},
	}

	kpis := BuildProgramKPIs(programs, map[string]float64{"A": 40, "B": 60})

	require.Len(t, kpis, 3)
	assert.Equal(t, 50.0, kpis[0].CompletionPct)
	assert.Equal(t, 0.0, kpis[2].CompletionPct)
	assert.InDelta(t, 80.0, CompositeCompletion(kpis), 1e-9)
}

func TestFormatNumber_ParsesBack(t *testing.T) {
	values := []float64{0, 12, 1234567, 1234567.5, -2500}
	for _, v := range values {
		formatted := FormatNumber(v, 1)
		assert.NotEmpty(t, formatted)
		assert.InDelta(t, v, reports.ParseLocaleNumber(formatted), 1e-9, "formatted %q", formatted)
	}
	assert.Contains(t, FormatPercent(12.5), "%")
}
