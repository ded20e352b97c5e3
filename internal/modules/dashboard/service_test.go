package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/kvstore"
	"github.com/aristath/reportdesk/internal/modules/reports"
)

const (
	summaryCumulative = "Tên miền\tDTLK\tDTQĐ\tTarget (QĐ)\t% HT Target (QĐ)\n" +
		"Tổng\t1000\t1200\t1000\t120%\n" +
		"ĐMX_HCM_123 - Quận 1\t400\t500\t600\t83%\n"

	employeeList = "Nhân viên\tDTLK\tDTQĐ\tHiệu quả QĐ\n" +
		"Tổng\t100\t120\t20%\n" +
		"Lê Khách - 999\t1\t1\t0%\n" +
		"BP Điện thoại\t\t50\t\n" +
		"Nguyễn Văn A - 12345\t30\t36\t20%\n" +
		"Trần Thị B - 23456\t20\t24\t20%\n" +
		"BP Tivi\n" +
		"Phạm C - 34567\t50\t60\t20%\n"

	competitionCumulative = "Thi đua lũy kế\n" +
		"Phòng ban\n" +
		"Máy lạnh\n" +
		"Tivi\n" +
		"DTQĐ\tSL\n" +
		"Tổng\t100\t80\t80%\t10\t5\t50%\n" +
		"ĐMX_HCM_123 - Quận 1\t50\t40\t80%\t4\t2\t50%\n" +
		"Nguyễn Văn A\t20\t10\t50%\t2\t1\t50%\n" +
		"Phòng ban\tĐiện thoại\n" +
		"DT\n" +
		"Tổng\t200\t100\t50%\n" +
		"ĐMX_HCM_123 - Quận 1\t60\t30\t50%\n"

	installments = "Nhân viên\tSL Trả góp\tDT Trả góp\tTỷ lệ Trả góp\n" +
		"Tổng\t3\t30\t10%\n" +
		"Nguyễn Văn A - 12345\t2\t20\t12%\n" +
		"Không Có - 000\t1\t10\t5%\n"
)

var fixedNow = time.Date(2025, time.April, 11, 10, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type harness struct {
	bus   *events.Bus
	store kvstore.Store
}

func newHarness() *harness {
	bus := events.NewBus(testLogger())
	return &harness{bus: bus, store: kvstore.NewMemoryStore(bus)}
}

func (h *harness) service(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return fixedNow }
	}
	s := NewService(h.store, events.NewManager(h.bus, testLogger()), opts, testLogger())
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func paste(t *testing.T, s *Service, kind reports.Kind, raw string) SlotState {
	t.Helper()
	state, err := s.Paste(context.Background(), kind, raw)
	require.NoError(t, err)
	return state
}

func flush(t *testing.T, services ...*Service) {
	t.Helper()
	for _, s := range services {
		require.NoError(t, s.Flush(context.Background()))
	}
}

func TestPaste_ValidReportComputesKPIs(t *testing.T) {
	s := newHarness().service(t, Options{})

	state := paste(t, s, reports.KindSummaryCumulative, summaryCumulative)

	assert.Equal(t, SlotValid, state.Status)
	require.NotNil(t, state.UpdatedAt)
	assert.True(t, state.UpdatedAt.Equal(fixedNow))
	assert.True(t, s.IsUpdated(reports.KindSummaryCumulative))

	kpi, ok := s.StoreKPI(false)
	require.True(t, ok)
	assert.InDelta(t, 0.2, kpi.Efficiency, 1e-9)
	assert.InDelta(t, 120.0, kpi.CompletionPct, 1e-9)

	snap := s.Snapshot()
	assert.True(t, snap.Target.FromReport)
	assert.Equal(t, 1000.0, snap.Target.Value)
}

func TestPaste_InvalidTextKeepsDerivedState(t *testing.T) {
	h := newHarness()
	s := h.service(t, Options{})
	ctx := context.Background()

	paste(t, s, reports.KindSummaryCumulative, summaryCumulative)
	before, _ := s.StoreKPI(false)

	state := paste(t, s, reports.KindSummaryCumulative, "Tên miền\tDTLK\nTổng\t1")

	assert.Equal(t, SlotInvalid, state.Status)
	assert.Equal(t, InvalidFormatMessage, state.Error)
	assert.Nil(t, state.UpdatedAt)
	assert.False(t, s.IsUpdated(reports.KindSummaryCumulative))
	assert.Equal(t, "Tên miền\tDTLK\nTổng\t1", s.Raw(reports.KindSummaryCumulative))

	after, ok := s.StoreKPI(false)
	require.True(t, ok)
	assert.Equal(t, before, after)

	var snapSlot SlotState
	for _, slot := range s.Snapshot().Slots {
		if slot.Kind == reports.KindSummaryCumulative {
			snapSlot = slot
		}
	}
	assert.Equal(t, SlotInvalid, snapSlot.Status)
	assert.Nil(t, snapSlot.UpdatedAt)
	assert.Equal(t, s.Slot(reports.KindSummaryCumulative), snapSlot)
	assert.Contains(t, s.Slots(), snapSlot)

	flush(t, s)
	raw, found, err := h.store.Get(ctx, RawKey(reports.KindSummaryCumulative))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Tên miền\tDTLK\nTổng\t1", raw)
	_, found, err = h.store.Get(ctx, UpdatedAtKey(reports.KindSummaryCumulative))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoad_InvalidPasteKeepsLastValidFigures(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	live := h.service(t, Options{})
	paste(t, live, reports.KindSummaryCumulative, summaryCumulative)
	expected, ok := live.StoreKPI(false)
	require.True(t, ok)
	paste(t, live, reports.KindSummaryCumulative, "garbage")
	flush(t, live)

	lastValid, found, err := h.store.Get(ctx, LastValidKey(reports.KindSummaryCumulative))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, summaryCumulative, lastValid)

	restarted := h.service(t, Options{})
	require.NoError(t, restarted.Load(ctx))

	slot := restarted.Slot(reports.KindSummaryCumulative)
	assert.Equal(t, SlotInvalid, slot.Status)
	assert.Equal(t, "garbage", restarted.Raw(reports.KindSummaryCumulative))
	assert.False(t, restarted.IsUpdated(reports.KindSummaryCumulative))

	kpi, ok := restarted.StoreKPI(false)
	require.True(t, ok)
	assert.Equal(t, expected, kpi)

	require.NoError(t, live.Clear(ctx, reports.KindSummaryCumulative))
	flush(t, live, restarted)
	_, found, err = h.store.Get(ctx, LastValidKey(reports.KindSummaryCumulative))
	require.NoError(t, err)
	assert.False(t, found)
	_, ok = restarted.StoreKPI(false)
	assert.False(t, ok)
}

func TestRemoteInvalidPasteKeepsLastValidFigures(t *testing.T) {
	h := newHarness()
	local := h.service(t, Options{})
	remote := h.service(t, Options{})

	paste(t, remote, reports.KindSummaryCumulative, summaryCumulative)
	flush(t, remote, local)
	paste(t, remote, reports.KindSummaryCumulative, "garbage")
	flush(t, remote, local)

	assert.Equal(t, SlotInvalid, local.Slot(reports.KindSummaryCumulative).Status)
	_, ok := local.StoreKPI(false)
	assert.True(t, ok)
}

func TestPaste_UnknownSlot(t *testing.T) {
	s := newHarness().service(t, Options{})

	_, err := s.Paste(context.Background(), reports.Kind("weekly"), summaryCumulative)

	assert.ErrorIs(t, err, reports.ErrUnknownKind)
}

func TestPasteAuto(t *testing.T) {
	s := newHarness().service(t, Options{})

	kind, state, err := s.PasteAuto(context.Background(), employeeList)
	require.NoError(t, err)
	assert.Equal(t, reports.KindEmployeeList, kind)
	assert.Equal(t, SlotValid, state.Status)

	_, _, err = s.PasteAuto(context.Background(), "hello\tworld")
	assert.ErrorIs(t, err, ErrUnrecognizedReport)
}

func TestClear(t *testing.T) {
	h := newHarness()
	s := h.service(t, Options{})
	ctx := context.Background()

	paste(t, s, reports.KindSummaryCumulative, summaryCumulative)
	require.NoError(t, s.Clear(ctx, reports.KindSummaryCumulative))

	assert.Equal(t, SlotEmpty, s.Slot(reports.KindSummaryCumulative).Status)
	_, ok := s.StoreKPI(false)
	assert.False(t, ok)

	flush(t, s)
	_, found, err := h.store.Get(ctx, RawKey(reports.KindSummaryCumulative))
	require.NoError(t, err)
	assert.False(t, found)
}

func pasteAll(t *testing.T, s *Service) {
	t.Helper()
	paste(t, s, reports.KindSummaryCumulative, summaryCumulative)
	paste(t, s, reports.KindEmployeeList, employeeList)
	paste(t, s, reports.KindCompetitionCumulative, competitionCumulative)
	paste(t, s, reports.KindInstallment, installments)
}

func TestSnapshotJSON_Idempotent(t *testing.T) {
	s := newHarness().service(t, Options{StoreCode: "ĐMX_HCM_123"})

	pasteAll(t, s)
	first, err := s.SnapshotJSON()
	require.NoError(t, err)

	pasteAll(t, s)
	second, err := s.SnapshotJSON()
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLoad_ReplaysToSameSnapshot(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	live := h.service(t, Options{})
	pasteAll(t, live)
	require.NoError(t, live.SelectStore(ctx, "ĐMX_HCM_123"))
	_, err := live.SetWeight(ctx, ScopeDepartments, "Tivi", 50)
	require.NoError(t, err)
	adjust := 80.0
	require.NoError(t, live.SetTarget(ctx, nil, &adjust))
	require.NoError(t, live.SetCompetitionAdjust(ctx, "Máy lạnh", 150))
	flush(t, live)
	require.NoError(t, live.Close(ctx))

	expected, err := live.SnapshotJSON()
	require.NoError(t, err)

	replayed := h.service(t, Options{})
	require.NoError(t, replayed.Load(ctx))
	actual, err := replayed.SnapshotJSON()
	require.NoError(t, err)

	assert.Equal(t, "ĐMX_HCM_123", replayed.SelectedStore())
	assert.JSONEq(t, string(expected), string(actual))
}

func TestRemoteChangesAreApplied(t *testing.T) {
	h := newHarness()
	local := h.service(t, Options{})
	remote := h.service(t, Options{})

	paste(t, remote, reports.KindSummaryCumulative, summaryCumulative)
	flush(t, remote, local)

	assert.True(t, local.IsUpdated(reports.KindSummaryCumulative))
	kpi, ok := local.StoreKPI(false)
	require.True(t, ok)
	assert.InDelta(t, 120.0, kpi.CompletionPct, 1e-9)
}

func TestOwnOriginChangesAreIgnored(t *testing.T) {
	h := newHarness()
	s := h.service(t, Options{Origin: "tab-1"})

	ctx := kvstore.WithOrigin(context.Background(), "tab-1")
	require.NoError(t, h.store.Set(ctx, RawKey(reports.KindSummaryCumulative), summaryCumulative))

	assert.Equal(t, SlotEmpty, s.Slot(reports.KindSummaryCumulative).Status)
}

// failingStore rejects every write.
type failingStore struct {
	*kvstore.MemoryStore
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("quota exceeded")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("quota exceeded")
}

func TestPersistenceFailure_EmitsEventPerWrite(t *testing.T) {
	bus := events.NewBus(testLogger())
	store := failingStore{MemoryStore: kvstore.NewMemoryStore(bus)}

	var mu sync.Mutex
	var failed []string
	bus.Subscribe(events.PersistenceFailed, func(e *events.Event) {
		data, ok := e.GetTypedData().(*events.PersistenceFailedData)
		if !ok {
			return
		}
		mu.Lock()
		failed = append(failed, data.Key)
		mu.Unlock()
	})

	s := NewService(store, events.NewManager(bus, testLogger()), Options{
		Clock: func() time.Time { return fixedNow },
	}, testLogger())
	defer func() { _ = s.Close(context.Background()) }()

	paste(t, s, reports.KindSummaryCumulative, summaryCumulative)
	flush(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{
		LastValidKey(reports.KindSummaryCumulative),
		RawKey(reports.KindSummaryCumulative),
		UpdatedAtKey(reports.KindSummaryCumulative),
	}, failed)
	assert.True(t, s.IsUpdated(reports.KindSummaryCumulative))
}

func TestSetWeight(t *testing.T) {
	s := newHarness().service(t, Options{})
	ctx := context.Background()
	paste(t, s, reports.KindEmployeeList, employeeList)

	weights := s.Weights().Departments
	require.Len(t, weights, 3)
	assert.InDelta(t, 100.0/3, weights["Tivi"], 1e-9)

	updated, err := s.SetWeight(ctx, ScopeDepartments, "Tivi", 50)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, updated["Tivi"], 1e-9)
	assert.InDelta(t, 100.0, updated.Sum(), 1e-6)
	assert.Equal(t, updated, s.Weights().Departments)

	_, err = s.SetWeight(ctx, ScopeDepartments, "Audio", 10)
	assert.ErrorIs(t, err, allocation.ErrUnknownShare)

	_, err = s.SetWeight(ctx, WeightScope("stores"), "Tivi", 10)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSetTarget_AllocatesToDepartmentsAndEmployees(t *testing.T) {
	s := newHarness().service(t, Options{})
	ctx := context.Background()
	paste(t, s, reports.KindSummaryCumulative, summaryCumulative)
	paste(t, s, reports.KindEmployeeList, employeeList)

	base, adjust := 3000.0, 50.0
	require.NoError(t, s.SetTarget(ctx, &base, &adjust))

	snap := s.Snapshot()
	assert.False(t, snap.Target.FromReport)
	assert.Equal(t, 1500.0, snap.Target.Value)
	assert.InDelta(t, 1200.0/1500*100, snap.Summary.Cumulative.CompletionPct, 1e-9)

	total := 0.0
	for _, a := range snap.Departments.Allocations {
		total += a.Target
	}
	assert.InDelta(t, 1500.0, total, 0.05)

	for _, e := range snap.Employees {
		if e.Department == "Điện thoại" {
			assert.InDelta(t, 250.0, e.Target, 0.01)
		}
	}

	zero := 0.0
	require.NoError(t, s.SetTarget(ctx, &zero, nil))
	snap = s.Snapshot()
	assert.True(t, snap.Target.FromReport)
	assert.Equal(t, 500.0, snap.Target.Value)

	tooHigh := 301.0
	assert.ErrorIs(t, s.SetTarget(ctx, nil, &tooHigh), ErrInvalidValue)
}

func TestCompetition_ApportionsStoreTargetToEmployees(t *testing.T) {
	s := newHarness().service(t, Options{StoreCode: "ĐMX_HCM_123"})
	ctx := context.Background()
	paste(t, s, reports.KindEmployeeList, employeeList)
	paste(t, s, reports.KindCompetitionCumulative, competitionCumulative)

	view, ok := s.Competition(false)
	require.True(t, ok)
	assert.Equal(t, "ĐMX_HCM_123 - Quận 1", view.Label)
	require.Len(t, view.Programs, 3)
	assert.InDelta(t, 60.0, view.Composite, 1e-6)
	assert.Len(t, view.Tables, 3)

	require.Len(t, view.Employees, 1)
	emp := view.Employees[0]
	assert.Equal(t, "Nguyễn Văn A - 12345", emp.Identity)
	assert.Equal(t, "Điện thoại", emp.Department)
	require.Len(t, emp.Programs, 2)
	assert.Equal(t, "Máy lạnh", emp.Programs[0].Program)
	assert.InDelta(t, 50.0, emp.Programs[0].AssignedTarget, 1e-9)
	assert.InDelta(t, 20.0, emp.Programs[0].CompletionPct, 1e-9)

	require.NoError(t, s.SetCompetitionAdjust(ctx, "Máy lạnh", 200))
	view, _ = s.Competition(false)
	assert.InDelta(t, 100.0, view.Employees[0].Programs[0].AssignedTarget, 1e-9)

	_, ok = s.Competition(true)
	assert.False(t, ok)
}

func TestInstallments_ExcludeUnknownEmployees(t *testing.T) {
	s := newHarness().service(t, Options{})

	paste(t, s, reports.KindInstallment, installments)
	assert.Len(t, s.Installments(), 2)

	paste(t, s, reports.KindEmployeeList, employeeList)
	rows := s.Installments()
	require.Len(t, rows, 1)
	assert.Equal(t, "Nguyễn Văn A - 12345", rows[0].Identity)
	assert.Equal(t, "Điện thoại", rows[0].Department)
}

func TestManualGroups(t *testing.T) {
	s := newHarness().service(t, Options{})
	ctx := context.Background()
	paste(t, s, reports.KindEmployeeList, employeeList)

	require.NoError(t, s.SetManualGroup(ctx, "Audio", []string{"Phạm C - 34567"}))

	departments := s.Departments().List
	require.Len(t, departments, 2)
	assert.Equal(t, "Audio", departments[0].Name)
	assert.Equal(t, 3, departments[1].Headcount)
	assert.Equal(t, []string{"Audio", "Other"}, s.Weights().Departments.Names())

	require.NoError(t, s.DeleteManualGroup(ctx, "Audio"))
	assert.Len(t, s.Departments().List, 3)
	assert.Empty(t, s.Mapping())

	assert.ErrorIs(t, s.SetManualGroup(ctx, " ", nil), ErrInvalidValue)
}

func TestLoad_DoesNotWriteReconciledWeights(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.Set(ctx, RawKey(reports.KindEmployeeList), employeeList))
	s := h.service(t, Options{})
	require.NoError(t, s.Load(ctx))
	flush(t, s)

	assert.Len(t, s.Weights().Departments, 3)
	_, found, err := h.store.Get(ctx, DepartmentWeightsKey(""))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.SetWeight(ctx, ScopeDepartments, "Tivi", 40)
	require.NoError(t, err)
	flush(t, s)
	_, found, err = h.store.Get(ctx, DepartmentWeightsKey(""))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSelectStore_WeightsArePerStore(t *testing.T) {
	s := newHarness().service(t, Options{})
	ctx := context.Background()
	paste(t, s, reports.KindEmployeeList, employeeList)

	_, err := s.SetWeight(ctx, ScopeDepartments, "Tivi", 80)
	require.NoError(t, err)

	require.NoError(t, s.SelectStore(ctx, "ĐMX_HCM_123"))
	assert.InDelta(t, 100.0/3, s.Weights().Departments["Tivi"], 1e-9)

	require.NoError(t, s.SelectStore(ctx, ""))
	assert.InDelta(t, 80.0, s.Weights().Departments["Tivi"], 1e-9)
}
