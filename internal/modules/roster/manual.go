package roster

import (
	"sort"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// ManualMapping assigns identities to departments by hand: department -> identities.
type ManualMapping map[string][]string

// byIdentity inverts the mapping to identity -> departments. Departments are visited in
// sorted order so that an identity listed under several departments resolves to the
// same one every time.
// e.g., {"Tivi": ["A - 1"], "Audio": ["A - 1", "B - 2"]}
//
//	-> {"A - 1": ["Audio", "Tivi"], "B - 2": ["Audio"]}
func (m ManualMapping) byIdentity() map[string][]string {
	result := make(map[string][]string)
	for _, group := range m.Departments() {
		for _, identity := range m[group] {
			id := reports.NormalizeIdentity(identity)
			if id == "" {
				continue
			}
			result[id] = append(result[id], group)
		}
	}
	return result
}

// Departments returns the sorted department names of the mapping.
func (m ManualMapping) Departments() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the mapping with department set to identities. An empty
// identity list removes the department.
func (m ManualMapping) With(department string, identities []string) ManualMapping {
	out := make(ManualMapping, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if len(identities) == 0 {
		delete(out, department)
		return out
	}
	ids := make([]string, 0, len(identities))
	for _, id := range identities {
		if n := reports.NormalizeIdentity(id); n != "" {
			ids = append(ids, n)
		}
	}
	out[department] = ids
	return out
}

// Without returns a copy of the mapping without department.
func (m ManualMapping) Without(department string) ManualMapping {
	return m.With(department, nil)
}
