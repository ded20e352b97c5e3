// Package dashboard orchestrates the report pipeline: it owns the pasted slots and the
// per-store configuration, recomputes every derived view after a change, and persists
// inputs to the key-value store in the background.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/events"
	"github.com/aristath/reportdesk/internal/modules/allocation"
	"github.com/aristath/reportdesk/internal/modules/kvstore"
	"github.com/aristath/reportdesk/internal/modules/reports"
	"github.com/aristath/reportdesk/internal/modules/roster"
)

const moduleName = "dashboard"

var (
	// ErrUnrecognizedReport is returned when pasted text matches no known report.
	ErrUnrecognizedReport = errors.New("unrecognized report")
	// ErrInvalidValue is returned for out-of-range configuration input.
	ErrInvalidValue = errors.New("invalid value")
)

// Clock returns the current time.
type Clock func() time.Time

// WeightScope selects which weight set of the store an edit applies to.
type WeightScope string

const (
	ScopeDepartments  WeightScope = "departments"
	ScopeCompetitions WeightScope = "competitions"
)

// Options configures a Service.
type Options struct {
	// StoreCode is the store selected until the user picks another; "" is the chain total.
	StoreCode string
	// LocationPrefixes are the label prefixes of store rows.
	LocationPrefixes []string
	// Clock defaults to time.Now.
	Clock Clock
	// Origin identifies this instance's writes; a random UUID when empty.
	Origin string
}

// storeConfig is the user configuration of one store.
type storeConfig struct {
	departmentWeights  allocation.WeightSet
	competitionWeights allocation.WeightSet
	mapping            roster.ManualMapping
	targetBase         float64
	targetAdjust       *float64
	competitionAdjust  map[string]float64
}

// Service owns the dashboard state. All mutations are serialized by one mutex; pipeline
// steps run synchronously inside it.
type Service struct {
	store    kvstore.Store
	queue    *kvstore.WriteQueue
	events   *events.Manager
	clock    Clock
	origin   string
	defaults Options
	log      zerolog.Logger

	mu           sync.Mutex
	slots        map[reports.Kind]slot
	tables       map[reports.Kind]reports.ParsedTable
	competitions map[reports.Kind]reports.CompetitionReport
	selected     string
	configs      map[string]*storeConfig
	derived      Snapshot

	unsubscribe func()
}

// NewService creates the dashboard over store. Call Load to restore persisted state.
func NewService(store kvstore.Store, eventManager *events.Manager, opts Options, log zerolog.Logger) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if len(opts.LocationPrefixes) == 0 {
		opts.LocationPrefixes = reports.DefaultLocationPrefixes
	}

	s := &Service{
		store:        store,
		events:       eventManager,
		clock:        opts.Clock,
		origin:       opts.Origin,
		defaults:     opts,
		log:          log.With().Str("service", moduleName).Logger(),
		slots:        make(map[reports.Kind]slot),
		tables:       make(map[reports.Kind]reports.ParsedTable),
		competitions: make(map[reports.Kind]reports.CompetitionReport),
		selected:     reports.NormalizeIdentity(opts.StoreCode),
		configs:      make(map[string]*storeConfig),
	}
	s.queue = kvstore.NewWriteQueue(store, s.onPersistFailure, log)
	s.unsubscribe = store.Subscribe("", s.onStoreChange)
	s.recompute(context.Background(), false)
	return s
}

// Origin returns the identifier attached to this instance's writes.
func (s *Service) Origin() string {
	return s.origin
}

// Close stops listening for store changes and waits for pending writes.
func (s *Service) Close(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return s.queue.Flush(ctx)
}

// Flush waits until every background write issued so far has been attempted.
func (s *Service) Flush(ctx context.Context) error {
	return s.queue.Flush(ctx)
}

// Load replays every persisted key and recomputes once. The result is the same as
// pasting and configuring everything again by hand.
func (s *Service) Load(ctx context.Context) error {
	entries, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load dashboard state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		s.applyEntry(e.Key, e.Value, true)
	}
	s.recompute(ctx, false)

	s.log.Info().Int("keys", len(entries)).Str("store", s.selected).Msg("Dashboard state loaded")
	return nil
}

// Paste stores raw as the text of slot kind. Text carrying the kind's fingerprint is
// parsed and every view recomputed. Other text is kept so the user can correct it, the
// slot is marked invalid and its timestamp cleared, while all derived views keep their
// last valid values.
func (s *Service) Paste(ctx context.Context, kind reports.Kind, raw string) (SlotState, error) {
	if _, err := reports.ParseKind(string(kind)); err != nil {
		return SlotState{}, err
	}
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	var notice events.EventData
	if reports.Validate(kind, raw) {
		now := s.clock()
		s.slots[kind] = slot{raw: raw, status: SlotValid, updatedAt: &now}
		s.parse(kind, raw)
		s.recompute(ctx, true)

		s.queue.Set(ctx, LastValidKey(kind), raw)
		s.queue.Set(ctx, RawKey(kind), raw)
		s.queue.Set(ctx, UpdatedAtKey(kind), now.Format(time.RFC3339Nano))
		notice = &events.SlotUpdatedData{Slot: string(kind), UpdatedAt: now}
	} else {
		s.slots[kind] = slot{raw: raw, status: SlotInvalid}
		s.recompute(ctx, true)

		s.queue.Set(ctx, RawKey(kind), raw)
		s.queue.Delete(ctx, UpdatedAtKey(kind))
		notice = &events.SlotRejectedData{Slot: string(kind), Message: InvalidFormatMessage}
	}
	state := s.slots[kind].state(kind)
	s.mu.Unlock()

	s.log.Info().
		Str("slot", string(kind)).
		Str("status", string(state.Status)).
		Int("bytes", len(raw)).
		Msg("Report pasted")
	s.emit(notice)
	return state, nil
}

// PasteAuto detects the report kind from its fingerprint and pastes it.
func (s *Service) PasteAuto(ctx context.Context, raw string) (reports.Kind, SlotState, error) {
	kind, ok := reports.Detect(raw)
	if !ok {
		return "", SlotState{}, ErrUnrecognizedReport
	}
	state, err := s.Paste(ctx, kind, raw)
	return kind, state, err
}

// Clear empties slot kind and drops everything derived from it.
func (s *Service) Clear(ctx context.Context, kind reports.Kind) error {
	if _, err := reports.ParseKind(string(kind)); err != nil {
		return err
	}
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	delete(s.slots, kind)
	delete(s.tables, kind)
	delete(s.competitions, kind)
	s.recompute(ctx, true)
	s.queue.Delete(ctx, LastValidKey(kind))
	s.queue.Delete(ctx, RawKey(kind))
	s.queue.Delete(ctx, UpdatedAtKey(kind))
	s.mu.Unlock()

	s.emit(&events.SlotClearedData{Slot: string(kind)})
	return nil
}

// parse replaces the parsed form of slot kind. Callers hold s.mu.
func (s *Service) parse(kind reports.Kind, raw string) {
	if kind.IsCompetition() {
		s.competitions[kind] = reports.ParseCompetitionReport(raw, reports.CompetitionRules{
			LocationPrefixes: s.defaults.LocationPrefixes,
		})
		return
	}
	s.tables[kind] = reports.ParseFlatTable(raw, reports.LayoutFor(kind, s.defaults.LocationPrefixes))
}

// SetWeight sets one share of the selected store's department or competition weights and
// rebalances the others.
func (s *Service) SetWeight(ctx context.Context, scope WeightScope, name string, pct float64) (allocation.WeightSet, error) {
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	cfg := s.config(s.selected)

	var current allocation.WeightSet
	var key string
	switch scope {
	case ScopeDepartments:
		current, key = cfg.departmentWeights, DepartmentWeightsKey(s.selected)
	case ScopeCompetitions:
		current, key = cfg.competitionWeights, CompetitionWeightsKey(s.selected)
	default:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: weight scope %q", ErrInvalidValue, scope)
	}
	if !current.Has(name) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", allocation.ErrUnknownShare, name)
	}

	updated := current.Update(name, pct)
	if scope == ScopeDepartments {
		cfg.departmentWeights = updated
	} else {
		cfg.competitionWeights = updated
	}
	s.persistJSON(ctx, key, updated)
	s.recompute(ctx, true)
	s.mu.Unlock()

	s.emit(&events.ConfigChangedData{Key: key})
	return updated.Clone(), nil
}

// SetTarget updates the selected store's target inputs. A nil argument leaves that input
// unchanged; a zero base reverts to the target printed in the summary report.
func (s *Service) SetTarget(ctx context.Context, base, adjustPct *float64) error {
	if base != nil && (*base < 0 || !finite(*base)) {
		return fmt.Errorf("%w: target base %v", ErrInvalidValue, *base)
	}
	if adjustPct != nil && (*adjustPct < 0 || *adjustPct > allocation.MaxAdjustPct || !finite(*adjustPct)) {
		return fmt.Errorf("%w: adjustment %v", ErrInvalidValue, *adjustPct)
	}
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	cfg := s.config(s.selected)
	if base != nil {
		cfg.targetBase = *base
		if *base == 0 {
			s.queue.Delete(ctx, TargetBaseKey(s.selected))
		} else {
			s.queue.Set(ctx, TargetBaseKey(s.selected), formatFloat(*base))
		}
	}
	if adjustPct != nil {
		v := *adjustPct
		cfg.targetAdjust = &v
		s.queue.Set(ctx, TargetAdjustKey(s.selected), formatFloat(v))
	}
	s.recompute(ctx, true)
	key := TargetBaseKey(s.selected)
	s.mu.Unlock()

	s.emit(&events.ConfigChangedData{Key: key})
	return nil
}

// SetCompetitionAdjust sets the adjustment percentage applied to one program's target
// before it is apportioned to employees.
func (s *Service) SetCompetitionAdjust(ctx context.Context, program string, pct float64) error {
	program = strings.TrimSpace(program)
	if program == "" {
		return fmt.Errorf("%w: empty program", ErrInvalidValue)
	}
	if pct < 0 || pct > allocation.MaxAdjustPct || !finite(pct) {
		return fmt.Errorf("%w: adjustment %v", ErrInvalidValue, pct)
	}
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	cfg := s.config(s.selected)
	cfg.competitionAdjust[program] = pct
	key := CompetitionAdjustKey(s.selected, program)
	s.queue.Set(ctx, key, formatFloat(pct))
	s.recompute(ctx, true)
	s.mu.Unlock()

	s.emit(&events.ConfigChangedData{Key: key})
	return nil
}

// SetManualGroup assigns identities to department in the selected store's manual
// mapping. Once the mapping has any group it replaces the departments of the employee
// list entirely.
func (s *Service) SetManualGroup(ctx context.Context, department string, identities []string) error {
	department = strings.TrimSpace(department)
	if department == "" {
		return fmt.Errorf("%w: empty department", ErrInvalidValue)
	}
	return s.updateMapping(ctx, func(m roster.ManualMapping) roster.ManualMapping {
		return m.With(department, identities)
	})
}

// DeleteManualGroup removes department from the manual mapping.
func (s *Service) DeleteManualGroup(ctx context.Context, department string) error {
	return s.updateMapping(ctx, func(m roster.ManualMapping) roster.ManualMapping {
		return m.Without(strings.TrimSpace(department))
	})
}

func (s *Service) updateMapping(ctx context.Context, change func(roster.ManualMapping) roster.ManualMapping) error {
	ctx = s.writeContext(ctx)

	s.mu.Lock()
	cfg := s.config(s.selected)
	cfg.mapping = change(cfg.mapping)
	key := MappingKey(s.selected)
	if len(cfg.mapping) == 0 {
		s.queue.Delete(ctx, key)
	} else {
		s.persistJSON(ctx, key, cfg.mapping)
	}
	s.recompute(ctx, true)
	s.mu.Unlock()

	s.emit(&events.ConfigChangedData{Key: key})
	return nil
}

// SelectStore switches the dashboard to another store. "" selects the chain total.
func (s *Service) SelectStore(ctx context.Context, code string) error {
	ctx = s.writeContext(ctx)
	code = reports.NormalizeIdentity(code)

	s.mu.Lock()
	s.selected = code
	s.queue.Set(ctx, SelectionStoreKey, code)
	s.recompute(ctx, true)
	s.mu.Unlock()

	s.emit(&events.ConfigChangedData{Key: SelectionStoreKey})
	return nil
}

// config returns the configuration of store, creating it on first use. Callers hold s.mu.
func (s *Service) config(store string) *storeConfig {
	cfg, ok := s.configs[store]
	if !ok {
		cfg = &storeConfig{
			departmentWeights:  allocation.WeightSet{},
			competitionWeights: allocation.WeightSet{},
			mapping:            roster.ManualMapping{},
			competitionAdjust:  make(map[string]float64),
		}
		s.configs[store] = cfg
	}
	return cfg
}

// applyEntry sets the in-memory state for one persisted key without writing it back.
// Callers hold s.mu and recompute afterwards.
func (s *Service) applyEntry(key, value string, found bool) {
	k := parseKey(key)
	switch k.kind {
	case keyRaw:
		if !found {
			delete(s.slots, k.slot)
			delete(s.tables, k.slot)
			delete(s.competitions, k.slot)
			return
		}
		if reports.Validate(k.slot, value) {
			s.slots[k.slot] = slot{raw: value, status: SlotValid}
			s.parse(k.slot, value)
		} else {
			// The parsed form of the last valid text, if any, stays in place.
			s.slots[k.slot] = slot{raw: value, status: SlotInvalid}
		}

	case keyLastValid:
		if found && reports.Validate(k.slot, value) {
			s.parse(k.slot, value)
			return
		}
		if current, ok := s.slots[k.slot]; !ok || current.status != SlotValid {
			delete(s.tables, k.slot)
			delete(s.competitions, k.slot)
		}

	case keyUpdatedAt:
		current, ok := s.slots[k.slot]
		if !ok || current.status != SlotValid {
			return
		}
		current.updatedAt = nil
		if found {
			if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
				current.updatedAt = &t
			}
		}
		s.slots[k.slot] = current

	case keyDepartmentWeights, keyCompetitionWeights:
		set := allocation.WeightSet{}
		if found {
			if err := json.Unmarshal([]byte(value), &set); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Ignoring malformed weight set")
				return
			}
		}
		if k.kind == keyDepartmentWeights {
			s.config(k.store).departmentWeights = set
		} else {
			s.config(k.store).competitionWeights = set
		}

	case keyMapping:
		mapping := roster.ManualMapping{}
		if found {
			if err := json.Unmarshal([]byte(value), &mapping); err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("Ignoring malformed mapping")
				return
			}
		}
		s.config(k.store).mapping = mapping

	case keyTargetBase:
		s.config(k.store).targetBase = 0
		if found {
			s.config(k.store).targetBase = parseFloat(value)
		}

	case keyTargetAdjust:
		s.config(k.store).targetAdjust = nil
		if found {
			v := parseFloat(value)
			s.config(k.store).targetAdjust = &v
		}

	case keyCompetitionAdjust:
		cfg := s.config(k.store)
		delete(cfg.competitionAdjust, k.program)
		if found {
			cfg.competitionAdjust[k.program] = parseFloat(value)
		}

	case keySelection:
		s.selected = reports.NormalizeIdentity(s.defaults.StoreCode)
		if found {
			s.selected = reports.NormalizeIdentity(value)
		}
	}
}

// onStoreChange applies writes made by other instances. Writes carrying this instance's
// origin are its own and already reflected in memory.
func (s *Service) onStoreChange(change kvstore.Change) {
	if change.Origin == s.origin {
		return
	}
	k := parseKey(change.Key)
	if k.kind == keyUnknown {
		return
	}

	ctx := context.Background()
	keys := []string{change.Key}
	if k.kind == keyRaw {
		// The last valid text and the timestamp may have been written in any order
		// relative to the text they belong to.
		keys = []string{LastValidKey(k.slot), change.Key, UpdatedAtKey(k.slot)}
	}

	type read struct {
		key, value string
		found      bool
	}
	reads := make([]read, 0, len(keys))
	for _, key := range keys {
		value, found, err := s.store.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to re-read changed key")
			return
		}
		reads = append(reads, read{key: key, value: value, found: found})
	}

	s.mu.Lock()
	for _, r := range reads {
		s.applyEntry(r.key, r.value, r.found)
	}
	s.recompute(ctx, false)
	s.mu.Unlock()

	s.log.Debug().Str("key", change.Key).Str("origin", change.Origin).Msg("Applied remote change")
}

func (s *Service) onPersistFailure(key string, err error) {
	s.emit(&events.PersistenceFailedData{Key: key, Error: err.Error()})
}

// persistJSON schedules a JSON-encoded write. Callers hold s.mu.
func (s *Service) persistJSON(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to encode value")
		return
	}
	s.queue.Set(ctx, key, string(data))
}

func (s *Service) writeContext(ctx context.Context) context.Context {
	return kvstore.WithOrigin(ctx, s.origin)
}

func (s *Service) emit(data events.EventData) {
	if s.events == nil || data == nil {
		return
	}
	s.events.EmitTyped(moduleName, data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return v == v && v-v == 0
}
