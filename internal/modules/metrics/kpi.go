package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// StoreKPI is the headline figures of one summary row.
type StoreKPI struct {
	Label               string  `json:"label"`
	RawRevenue          float64 `json:"raw_revenue"`
	ConvertedRevenue    float64 `json:"converted_revenue"`
	Target              float64 `json:"target"`
	CompletionPct       float64 `json:"completion_pct"`
	ReportedCompletion  float64 `json:"reported_completion"`
	Efficiency          float64 `json:"efficiency"`
	DailyTarget         float64 `json:"daily_target"`
	ProjectedMonthEnd   float64 `json:"projected_month_end"`
	ProjectedCompletion float64 `json:"projected_completion"`
}

// summaryColumns names the columns of a summary report for one time scope.
type summaryColumns struct {
	raw, converted, target, completion string
}

var (
	cumulativeColumns = summaryColumns{
		raw:        reports.ColRawCumulative,
		converted:  reports.ColConvertedCumulative,
		target:     reports.ColTargetCumulative,
		completion: reports.ColCompletionCumulative,
	}
	realtimeColumns = summaryColumns{
		raw:        reports.ColRawRealtime,
		converted:  reports.ColConvertedRealtime,
		target:     reports.ColTargetRealtime,
		completion: reports.ColCompletionRealtime,
	}
)

// BuildStoreKPI computes the KPIs of the summary row matching code. An empty code selects
// the total row. targetOverride replaces the report's target when positive.
func BuildStoreKPI(table reports.ParsedTable, code string, realtime bool, targetOverride float64, now time.Time) (StoreKPI, bool) {
	if code == "" {
		code = reports.TotalLabel
	}
	row, ok := table.FindRow(code)
	if !ok {
		return StoreKPI{}, false
	}

	cols := cumulativeColumns
	if realtime {
		cols = realtimeColumns
	}

	kpi := StoreKPI{
		Label:              row[0],
		RawRevenue:         table.Number(row, cols.raw),
		ConvertedRevenue:   table.Number(row, cols.converted),
		Target:             table.Number(row, cols.target),
		ReportedCompletion: table.Number(row, cols.completion),
	}
	if targetOverride > 0 {
		kpi.Target = targetOverride
	}

	kpi.CompletionPct = CompletionPct(kpi.ConvertedRevenue, kpi.Target)
	kpi.Efficiency = EfficiencyRatio(kpi.ConvertedRevenue, kpi.RawRevenue)
	if realtime {
		kpi.DailyTarget = kpi.Target
	} else {
		kpi.DailyTarget = DailyTarget(kpi.Target, now)
		kpi.ProjectedMonthEnd = ProjectedMonthEnd(kpi.ConvertedRevenue, now)
		kpi.ProjectedCompletion = CompletionPct(kpi.ProjectedMonthEnd, kpi.Target)
	}
	return kpi, true
}

// IndustryKPI is one industry group of the industry report.
type IndustryKPI struct {
	Group            string  `json:"group"`
	Quantity         float64 `json:"quantity"`
	RawRevenue       float64 `json:"raw_revenue"`
	ConvertedRevenue float64 `json:"converted_revenue"`
	Efficiency       float64 `json:"efficiency"`
	SharePct         float64 `json:"share_pct"`
}

// BuildIndustryKPIs converts the non-total rows of an industry report, sorted by
// converted revenue, largest first. SharePct is the group's share of the converted total.
func BuildIndustryKPIs(table reports.ParsedTable, realtime bool) []IndustryKPI {
	quantityCol, rawCol, convertedCol := reports.ColQuantityCumulative, reports.ColRawCumulative, reports.ColConvertedCumulative
	if realtime {
		quantityCol, rawCol, convertedCol = reports.ColQuantityRealtime, reports.ColRawRealtime, reports.ColConvertedRealtime
	}

	rows := table.DataRows()
	kpis := make([]IndustryKPI, 0, len(rows))
	total := 0.0
	for _, row := range rows {
		kpi := IndustryKPI{
			Group:            row[0],
			Quantity:         table.Number(row, quantityCol),
			RawRevenue:       table.Number(row, rawCol),
			ConvertedRevenue: table.Number(row, convertedCol),
		}
		kpi.Efficiency = EfficiencyRatio(kpi.ConvertedRevenue, kpi.RawRevenue)
		total += kpi.ConvertedRevenue
		kpis = append(kpis, kpi)
	}
	for i := range kpis {
		kpis[i].SharePct = CompletionPct(kpis[i].ConvertedRevenue, total)
	}

	sort.SliceStable(kpis, func(i, j int) bool {
		return kpis[i].ConvertedRevenue > kpis[j].ConvertedRevenue
	})
	return kpis
}

// InstallmentKPI is one employee's installment-sales figures.
type InstallmentKPI struct {
	Identity    string  `json:"identity"`
	DisplayName string  `json:"display_name"`
	Department  string  `json:"department"`
	Count       float64 `json:"count"`
	Revenue     float64 `json:"revenue"`
	RatePct     float64 `json:"rate_pct"`
}

// IdentityResolver maps a report label to an employee identity and department.
type IdentityResolver func(label string) (identity, department string, ok bool)

// BuildInstallmentKPIs converts the employee rows of the installment report. Rows the
// resolver cannot place are left out; a nil resolver keeps every row under its own label.
func BuildInstallmentKPIs(table reports.ParsedTable, resolve IdentityResolver) []InstallmentKPI {
	var kpis []InstallmentKPI
	for _, row := range table.DataRows() {
		identity, department := reports.NormalizeIdentity(row[0]), ""
		if resolve != nil {
			var ok bool
			identity, department, ok = resolve(row[0])
			if !ok {
				continue
			}
		}
		kpis = append(kpis, InstallmentKPI{
			Identity:    identity,
			DisplayName: reports.DisplayName(identity),
			Department:  department,
			Count:       table.Number(row, reports.ColInstallmentCount),
			Revenue:     table.Number(row, reports.ColInstallmentRevenue),
			RatePct:     table.Number(row, reports.ColInstallmentRate),
		})
	}
	sort.SliceStable(kpis, func(i, j int) bool {
		return kpis[i].Identity < kpis[j].Identity
	})
	return kpis
}

// EmployeeKPI is one employee's cumulative revenue from the employee list.
type EmployeeKPI struct {
	Identity         string  `json:"identity"`
	DisplayName      string  `json:"display_name"`
	Department       string  `json:"department"`
	RawRevenue       float64 `json:"raw_revenue"`
	ConvertedRevenue float64 `json:"converted_revenue"`
	Efficiency       float64 `json:"efficiency"`
	Target           float64 `json:"target"`
	CompletionPct    float64 `json:"completion_pct"`
}

// BuildEmployeeKPIs reads the employee rows of the employee list. Department header rows
// and employees the resolver cannot place are skipped.
func BuildEmployeeKPIs(table reports.ParsedTable, resolve IdentityResolver) []EmployeeKPI {
	var kpis []EmployeeKPI
	for _, row := range table.DataRows() {
		if !containsSeparator(row[0]) {
			continue
		}
		identity, department := reports.NormalizeIdentity(row[0]), ""
		if resolve != nil {
			var ok bool
			identity, department, ok = resolve(row[0])
			if !ok {
				continue
			}
		}
		kpi := EmployeeKPI{
			Identity:         identity,
			DisplayName:      reports.DisplayName(identity),
			Department:       department,
			RawRevenue:       table.Number(row, reports.ColRawCumulative),
			ConvertedRevenue: table.Number(row, reports.ColConvertedCumulative),
		}
		kpi.Efficiency = EfficiencyRatio(kpi.ConvertedRevenue, kpi.RawRevenue)
		kpis = append(kpis, kpi)
	}
	sort.SliceStable(kpis, func(i, j int) bool {
		return kpis[i].Identity < kpis[j].Identity
	})
	return kpis
}

func containsSeparator(label string) bool {
	return strings.Contains(reports.NormalizeIdentity(label), reports.IdentitySeparator)
}
