package dashboard

import (
	"encoding/json"

	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/metrics"
	"github.com/aristath/reportdesk/internal/modules/reports"
	"github.com/aristath/reportdesk/internal/modules/roster"
)

// Snapshot returns the current derived state. Slices and maps in the result are never
// mutated by the service afterwards.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived
}

// SnapshotJSON encodes the current snapshot. The same state always encodes to the same
// bytes.
func (s *Service) SnapshotJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// SelectedStore returns the store the views are computed for ("" is the chain total).
func (s *Service) SelectedStore() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// StoreKPI returns the headline KPIs of the selected store for one time scope.
func (s *Service) StoreKPI(realtime bool) (metrics.StoreKPI, bool) {
	snap := s.Snapshot()
	kpi := snap.Summary.Cumulative
	if realtime {
		kpi = snap.Summary.Realtime
	}
	if kpi == nil {
		return metrics.StoreKPI{}, false
	}
	return *kpi, true
}

// Departments returns the department list with target allocations and group deviation.
func (s *Service) Departments() DepartmentView {
	return s.Snapshot().Departments
}

// Employees returns the per-employee KPIs of the employee list.
func (s *Service) Employees() []metrics.EmployeeKPI {
	return s.Snapshot().Employees
}

// Competition returns the competition view of one time scope.
func (s *Service) Competition(realtime bool) (*CompetitionView, bool) {
	snap := s.Snapshot()
	view := snap.Competition.Cumulative
	if realtime {
		view = snap.Competition.Realtime
	}
	return view, view != nil
}

// Installments returns the installment KPIs per employee.
func (s *Service) Installments() []metrics.InstallmentKPI {
	return s.Snapshot().Installments
}

// Weights returns the weight sets of the selected store.
func (s *Service) Weights() WeightsView {
	return s.Snapshot().Weights
}

// Mapping returns the manual department mapping of the selected store.
func (s *Service) Mapping() roster.ManualMapping {
	return s.Snapshot().Mapping
}

// Target returns the selected store's monthly target.
func (s *Service) Target() allocation.Target {
	t := s.Snapshot().Target
	return allocation.Target{Base: t.Base, AdjustPct: t.AdjustPct}
}

// Slots returns the state of every slot in detection order.
func (s *Service) Slots() []SlotState {
	return s.Snapshot().Slots
}

// Slot returns the state of one slot.
func (s *Service) Slot(kind reports.Kind) SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].state(kind)
}

// Raw returns the last text pasted into a slot, valid or not.
func (s *Service) Raw(kind reports.Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].raw
}

// IsUpdated reports whether a slot holds a valid, timestamped paste.
func (s *Service) IsUpdated(kind reports.Kind) bool {
	return s.Slot(kind).Updated()
}
