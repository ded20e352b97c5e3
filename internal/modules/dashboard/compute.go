package dashboard

import (
	"context"
	"sort"

	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/metrics"
	"github.com/aristath/reportdesk/internal/modules/reports"
	"github.com/aristath/reportdesk/internal/modules/roster"
)

// recompute rebuilds every derived view from the parsed slots and the selected store's
// configuration. Weight sets are reconciled against the departments and programs
// currently observed. Reconciled sets are written back only when persist is set: local
// edits persist, state replayed from the store does not. Callers hold s.mu.
func (s *Service) recompute(ctx context.Context, persist bool) {
	ctx = s.writeContext(ctx)
	now := s.clock()
	store := s.selected
	cfg := s.config(store)

	snap := Snapshot{Store: store}
	for _, kind := range reports.AllKinds {
		snap.Slots = append(snap.Slots, s.slots[kind].state(kind))
	}

	ids := roster.BuildIdentityMap(s.tables[reports.KindEmployeeList], cfg.mapping)
	s.reconcileWeights(ctx, store, cfg, ids, persist)

	// Target and headline KPIs.
	cumulative := s.tables[reports.KindSummaryCumulative]
	reportKPI, found := metrics.BuildStoreKPI(cumulative, store, false, 0, now)
	target := allocation.Target{Base: cfg.targetBase, AdjustPct: allocation.DefaultAdjustPct}
	if cfg.targetAdjust != nil {
		target.AdjustPct = *cfg.targetAdjust
	}
	if target.Base <= 0 && found {
		target.Base = reportKPI.Target
		snap.Target.FromReport = true
	}
	snap.Target.Base = target.Base
	snap.Target.AdjustPct = target.AdjustPct
	snap.Target.Value = target.Value()

	if kpi, ok := metrics.BuildStoreKPI(cumulative, store, false, target.Value(), now); ok {
		snap.Summary.Cumulative = &kpi
	}
	if kpi, ok := metrics.BuildStoreKPI(s.tables[reports.KindSummaryRealtime], store, true, 0, now); ok {
		snap.Summary.Realtime = &kpi
	}

	snap.Industries = IndustryView{
		Cumulative: metrics.BuildIndustryKPIs(s.tables[reports.KindIndustryCumulative], false),
		Realtime:   metrics.BuildIndustryKPIs(s.tables[reports.KindIndustryRealtime], true),
	}

	// Departments and employees.
	departments := ids.Departments()
	headcount := make(map[string]int, len(departments))
	for _, d := range departments {
		headcount[d.Name] = d.Headcount
	}
	allocations := allocation.DepartmentAllocations(target.Value(), cfg.departmentWeights, headcount)
	perEmployee := make(map[string]float64, len(allocations))
	for _, a := range allocations {
		perEmployee[a.Department] = a.PerEmployee
	}

	resolve := identityResolver(ids)
	employees := metrics.BuildEmployeeKPIs(s.tables[reports.KindEmployeeList], resolve)
	members := make([]allocation.MemberValue, 0, len(employees))
	for i := range employees {
		employees[i].Target = perEmployee[employees[i].Department]
		employees[i].CompletionPct = metrics.CompletionPct(employees[i].ConvertedRevenue, employees[i].Target)
		members = append(members, allocation.MemberValue{
			Name:       employees[i].Identity,
			Department: employees[i].Department,
			Value:      employees[i].ConvertedRevenue,
		})
	}
	snap.Departments = DepartmentView{
		List:        departments,
		Allocations: allocations,
		Groups:      allocation.CalculateGroupAllocation(members, cfg.departmentWeights),
	}
	snap.Employees = employees

	// Competition.
	snap.Competition = CompetitionScopes{
		Cumulative: s.competitionView(reports.KindCompetitionCumulative, store, cfg, ids),
		Realtime:   s.competitionView(reports.KindCompetitionRealtime, store, cfg, ids),
	}

	// Installments are listed per employee when the employee list is known; otherwise every
	// row is kept under its own label.
	if ids.Len() > 0 {
		snap.Installments = metrics.BuildInstallmentKPIs(s.tables[reports.KindInstallment], resolve)
	} else {
		snap.Installments = metrics.BuildInstallmentKPIs(s.tables[reports.KindInstallment], nil)
	}

	snap.Weights = WeightsView{
		Departments:        cfg.departmentWeights.Clone(),
		Competitions:       cfg.competitionWeights.Clone(),
		CompetitionAdjusts: copyFloats(cfg.competitionAdjust),
	}
	snap.Mapping = copyMapping(cfg.mapping)

	s.derived = snap
}

// reconcileWeights aligns the store's weight sets with the departments and programs
// currently observed. A set is left alone while nothing is observed, so that clearing a
// slot does not discard the user's weights.
func (s *Service) reconcileWeights(ctx context.Context, store string, cfg *storeConfig, ids roster.IdentityMap, persist bool) {
	if names := ids.DepartmentNames(); len(names) > 0 {
		if updated, changed := allocation.Reconcile(cfg.departmentWeights, names); changed {
			cfg.departmentWeights = updated
			if persist {
				s.persistJSON(ctx, DepartmentWeightsKey(store), updated)
			}
		}
	}

	var programs []string
	for _, kind := range []reports.Kind{reports.KindCompetitionCumulative, reports.KindCompetitionRealtime} {
		if report, ok := s.competitions[kind]; ok {
			programs = append(programs, report.ProgramNames()...)
		}
	}
	if len(programs) > 0 {
		if updated, changed := allocation.Reconcile(cfg.competitionWeights, programs); changed {
			cfg.competitionWeights = updated
			if persist {
				s.persistJSON(ctx, CompetitionWeightsKey(store), updated)
			}
		}
	}
}

// competitionView builds the competition view of one scope, or nil when that report has
// not been pasted.
func (s *Service) competitionView(kind reports.Kind, store string, cfg *storeConfig, ids roster.IdentityMap) *CompetitionView {
	report, ok := s.competitions[kind]
	if !ok {
		return nil
	}

	code := store
	if code == "" {
		code = reports.TotalLabel
	}
	view := &CompetitionView{
		Programs:  []metrics.ProgramKPI{},
		Tables:    map[reports.Criterion]reports.ParsedTable{},
		Employees: []EmployeeCompetition{},
	}

	storePrograms := make(map[string]reports.CompetitionProgram)
	if label, found := report.FindLabel(code); found {
		view.Label = label
		view.Programs = metrics.BuildProgramKPIs(report.Programs[label], cfg.competitionWeights)
		view.Composite = metrics.CompositeCompletion(view.Programs)
		view.Tables = report.Tables(label)
		for _, p := range report.Programs[label] {
			storePrograms[p.Name] = p
		}
	}

	if ids.Len() == 0 {
		return view
	}
	deptWeights := cfg.departmentWeights

	// Employee rows are the labels the identity map recognizes. Each program's store target
	// is apportioned over the employees taking part in it.
	byEmployee := make(map[string][]reports.CompetitionProgram)
	employees := make(map[string]roster.Employee)
	participants := make(map[string]map[string]float64)
	for _, label := range report.Labels {
		if reports.IsTotalLabel(label) {
			continue
		}
		emp, matched := ids.Match(label)
		if !matched {
			continue
		}
		if _, seen := employees[emp.Identity]; seen {
			continue
		}
		employees[emp.Identity] = emp
		byEmployee[emp.Identity] = report.Programs[label]
		for _, p := range report.Programs[label] {
			if participants[p.Name] == nil {
				participants[p.Name] = make(map[string]float64)
			}
			participants[p.Name][emp.Identity] = deptWeights[emp.Department]
		}
	}

	assigned := make(map[string]map[string]float64, len(participants))
	for name, weights := range participants {
		adjust := allocation.DefaultAdjustPct
		if v, ok := cfg.competitionAdjust[name]; ok {
			adjust = v
		}
		assigned[name] = allocation.ApportionCompetition(storePrograms[name].Target(), adjust, weights)
	}

	identities := make([]string, 0, len(employees))
	for id := range employees {
		identities = append(identities, id)
	}
	sort.Strings(identities)

	for _, id := range identities {
		emp := employees[id]
		row := EmployeeCompetition{
			Identity:    emp.Identity,
			DisplayName: emp.DisplayName,
			Department:  emp.Department,
			Programs:    make([]EmployeeProgram, 0, len(byEmployee[id])),
		}
		for _, p := range byEmployee[id] {
			share := assigned[p.Name][id]
			row.Programs = append(row.Programs, EmployeeProgram{
				Program:        p.Name,
				Criterion:      p.Criterion,
				Actual:         p.Actual(),
				AssignedTarget: share,
				CompletionPct:  metrics.CompletionPct(p.Actual(), share),
			})
		}
		view.Employees = append(view.Employees, row)
	}
	return view
}

func identityResolver(ids roster.IdentityMap) metrics.IdentityResolver {
	return func(label string) (string, string, bool) {
		emp, ok := ids.Match(label)
		if !ok {
			return "", "", false
		}
		return emp.Identity, emp.Department, true
	}
}

func copyFloats(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyMapping(in roster.ManualMapping) roster.ManualMapping {
	out := make(roster.ManualMapping, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
