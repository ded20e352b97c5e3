package dashboard

import (
	"strings"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// Store key layout. <store> is the selected store code ("" for the chain total is stored
// as "_total").
const (
	SelectionStoreKey = "selection.store"

	reportPrefix      = "report."
	rawSuffix         = ".raw"
	updatedAtSuffix   = ".updated_at"
	lastValidSuffix   = ".last_valid"
	weightsPrefix     = "weights."
	departmentsSuffix = ".departments"
	competitionSuffix = ".competitions"
	mappingPrefix     = "mapping."
	targetPrefix      = "target."
	baseSuffix        = ".base"
	adjustSuffix      = ".adjust_pct"
	competitionPrefix = "competition."
	adjustInfix       = ".adjust."

	totalStoreKey = "_total"
)

func storeSegment(store string) string {
	if store == "" {
		return totalStoreKey
	}
	return store
}

func segmentStore(segment string) string {
	if segment == totalStoreKey {
		return ""
	}
	return segment
}

// RawKey holds the last pasted text of a slot.
func RawKey(kind reports.Kind) string { return reportPrefix + string(kind) + rawSuffix }

// UpdatedAtKey holds the RFC 3339 time of the last valid paste of a slot.
func UpdatedAtKey(kind reports.Kind) string { return reportPrefix + string(kind) + updatedAtSuffix }

// LastValidKey holds the text of the last valid paste of a slot. It survives later
// invalid pastes so a restart still shows the last valid figures.
func LastValidKey(kind reports.Kind) string { return reportPrefix + string(kind) + lastValidSuffix }

// DepartmentWeightsKey holds the department WeightSet of a store as JSON.
func DepartmentWeightsKey(store string) string {
	return weightsPrefix + storeSegment(store) + departmentsSuffix
}

// CompetitionWeightsKey holds the competition program WeightSet of a store as JSON.
func CompetitionWeightsKey(store string) string {
	return weightsPrefix + storeSegment(store) + competitionSuffix
}

// MappingKey holds the manual department mapping of a store as JSON.
func MappingKey(store string) string { return mappingPrefix + storeSegment(store) }

// TargetBaseKey holds the monthly target base of a store.
func TargetBaseKey(store string) string { return targetPrefix + storeSegment(store) + baseSuffix }

// TargetAdjustKey holds the target adjustment percentage of a store.
func TargetAdjustKey(store string) string { return targetPrefix + storeSegment(store) + adjustSuffix }

// CompetitionAdjustKey holds the adjustment percentage of one competition program.
func CompetitionAdjustKey(store, program string) string {
	return competitionPrefix + storeSegment(store) + adjustInfix + program
}

// keyKind classifies a store key.
type keyKind int

const (
	keyUnknown keyKind = iota
	keyRaw
	keyUpdatedAt
	keyLastValid
	keyDepartmentWeights
	keyCompetitionWeights
	keyMapping
	keyTargetBase
	keyTargetAdjust
	keyCompetitionAdjust
	keySelection
)

// parsedKey is a store key split into its parts.
type parsedKey struct {
	kind    keyKind
	slot    reports.Kind
	store   string
	program string
}

// parseKey reverses the key builders above.
func parseKey(key string) parsedKey {
	switch {
	case key == SelectionStoreKey:
		return parsedKey{kind: keySelection}

	case strings.HasPrefix(key, reportPrefix):
		rest := strings.TrimPrefix(key, reportPrefix)
		for suffix, kind := range map[string]keyKind{
			rawSuffix:       keyRaw,
			updatedAtSuffix: keyUpdatedAt,
			lastValidSuffix: keyLastValid,
		} {
			if name, ok := strings.CutSuffix(rest, suffix); ok {
				if slot, err := reports.ParseKind(name); err == nil {
					return parsedKey{kind: kind, slot: slot}
				}
			}
		}

	case strings.HasPrefix(key, weightsPrefix):
		rest := strings.TrimPrefix(key, weightsPrefix)
		if store, ok := strings.CutSuffix(rest, departmentsSuffix); ok {
			return parsedKey{kind: keyDepartmentWeights, store: segmentStore(store)}
		}
		if store, ok := strings.CutSuffix(rest, competitionSuffix); ok {
			return parsedKey{kind: keyCompetitionWeights, store: segmentStore(store)}
		}

	case strings.HasPrefix(key, mappingPrefix):
		return parsedKey{kind: keyMapping, store: segmentStore(strings.TrimPrefix(key, mappingPrefix))}

	case strings.HasPrefix(key, targetPrefix):
		rest := strings.TrimPrefix(key, targetPrefix)
		if store, ok := strings.CutSuffix(rest, baseSuffix); ok {
			return parsedKey{kind: keyTargetBase, store: segmentStore(store)}
		}
		if store, ok := strings.CutSuffix(rest, adjustSuffix); ok {
			return parsedKey{kind: keyTargetAdjust, store: segmentStore(store)}
		}

	case strings.HasPrefix(key, competitionPrefix):
		rest := strings.TrimPrefix(key, competitionPrefix)
		if store, program, ok := strings.Cut(rest, adjustInfix); ok && program != "" {
			return parsedKey{kind: keyCompetitionAdjust, store: segmentStore(store), program: program}
		}
	}
	return parsedKey{kind: keyUnknown}
}
