package dashboard

import (
	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/metrics"
	"github.com/aristath/reportdesk/internal/modules/reports"
	"github.com/aristath/reportdesk/internal/modules/roster"
)

// Snapshot is the complete, view-ready state of the dashboard. Encoding the same
// snapshot twice yields identical JSON.
type Snapshot struct {
	Store        string                   `json:"store"`
	Slots        []SlotState              `json:"slots"`
	Summary      SummaryView              `json:"summary"`
	Target       TargetView               `json:"target"`
	Industries   IndustryView             `json:"industries"`
	Departments  DepartmentView           `json:"departments"`
	Employees    []metrics.EmployeeKPI    `json:"employees"`
	Competition  CompetitionScopes        `json:"competition"`
	Installments []metrics.InstallmentKPI `json:"installments"`
	Weights      WeightsView              `json:"weights"`
	Mapping      roster.ManualMapping     `json:"mapping"`
}

// SummaryView holds the headline KPIs of the selected store.
type SummaryView struct {
	Cumulative *metrics.StoreKPI `json:"cumulative,omitempty"`
	Realtime   *metrics.StoreKPI `json:"realtime,omitempty"`
}

// TargetView is the store's monthly target and where its base came from.
type TargetView struct {
	Base       float64 `json:"base"`
	AdjustPct  float64 `json:"adjust_pct"`
	Value      float64 `json:"value"`
	FromReport bool    `json:"from_report"`
}

// IndustryView holds the industry breakdown of both time scopes.
type IndustryView struct {
	Cumulative []metrics.IndustryKPI `json:"cumulative"`
	Realtime   []metrics.IndustryKPI `json:"realtime"`
}

// DepartmentView holds department targets and the deviation of actual revenue shares.
type DepartmentView struct {
	List        []roster.Department               `json:"list"`
	Allocations []allocation.DepartmentAllocation `json:"allocations"`
	Groups      []allocation.GroupAllocation      `json:"groups"`
}

// CompetitionScopes holds the competition views of both time scopes.
type CompetitionScopes struct {
	Cumulative *CompetitionView `json:"cumulative,omitempty"`
	Realtime   *CompetitionView `json:"realtime,omitempty"`
}

// CompetitionView is the selected store's competition programs and the per-employee
// breakdown.
type CompetitionView struct {
	Label     string                                    `json:"label"`
	Programs  []metrics.ProgramKPI                      `json:"programs"`
	Composite float64                                   `json:"composite"`
	Tables    map[reports.Criterion]reports.ParsedTable `json:"tables"`
	Employees []EmployeeCompetition                     `json:"employees"`
}

// EmployeeCompetition is one employee's results across competition programs.
type EmployeeCompetition struct {
	Identity    string            `json:"identity"`
	DisplayName string            `json:"display_name"`
	Department  string            `json:"department"`
	Programs    []EmployeeProgram `json:"programs"`
}

// EmployeeProgram is one employee's result in one program against the apportioned target.
type EmployeeProgram struct {
	Program        string            `json:"program"`
	Criterion      reports.Criterion `json:"criterion"`
	Actual         float64           `json:"actual"`
	AssignedTarget float64           `json:"assigned_target"`
	CompletionPct  float64           `json:"completion_pct"`
}

// WeightsView holds the weight sets of the selected store.
type WeightsView struct {
	Departments        allocation.WeightSet `json:"departments"`
	Competitions       allocation.WeightSet `json:"competitions"`
	CompetitionAdjusts map[string]float64   `json:"competition_adjusts"`
}
