package metrics

import "github.com/aristath/reportdesk/internal/modules/reports"

// ProgramKPI is one competition program of one row label.
type ProgramKPI struct {
	Program       string            `json:"program"`
	Criterion     reports.Criterion `json:"criterion"`
	Target        float64           `json:"target"`
	Actual        float64           `json:"actual"`
	CompletionPct float64           `json:"completion_pct"`
	WeightPct     float64           `json:"weight_pct"`
}

// BuildProgramKPIs computes completion for each program. Completion is recomputed from
// target and actual rather than read from the report's "% HT" column. weights maps
// program name to its percentage weight and may be nil.
func BuildProgramKPIs(programs []reports.CompetitionProgram, weights map[string]float64) []ProgramKPI {
	kpis := make([]ProgramKPI, 0, len(programs))
	for _, p := range programs {
		kpis = append(kpis, ProgramKPI{
			Program:       p.Name,
			Criterion:     p.Criterion,
			Target:        p.Target(),
			Actual:        p.Actual(),
			CompletionPct: CompletionPct(p.Actual(), p.Target()),
			WeightPct:     weights[p.Name],
		})
	}
	return kpis
}

// CompositeCompletion is the weighted completion across programs: the sum of
// weight/100 x completion.
func CompositeCompletion(kpis []ProgramKPI) float64 {
	total := 0.0
	for _, k := range kpis {
		total += k.WeightPct / 100 * k.CompletionPct
	}
	return total
}
