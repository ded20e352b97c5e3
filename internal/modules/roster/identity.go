// Package roster resolves employees to departments from the authoritative employee list
// and an optional manual mapping.
package roster

import (
	"sort"
	"strings"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// OtherDepartment collects employees that no department claims.
const OtherDepartment = "Other"

// Employee is one person of the store. Department is derived on every build and never
// stored.
type Employee struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// Department is a department name with the number of employees assigned to it.
type Department struct {
	Name      string `json:"name"`
	Headcount int    `json:"headcount"`
}

// IdentityMap maps normalized identities ("Name - ID") to employees.
type IdentityMap struct {
	employees map[string]Employee
}

// BuildIdentityMap derives the department of every employee of the list.
//
// Departments come from the list's "BP " header rows, which populate fewer columns than
// an employee row; each employee belongs to the nearest department row above it. When
// manual is non-empty it replaces the inferred assignment wholesale: see applyManual.
func BuildIdentityMap(employeeList reports.ParsedTable, manual ManualMapping) IdentityMap {
	m := IdentityMap{employees: make(map[string]Employee)}

	employeeWidth := len(employeeList.Headers) - 1
	current := ""
	for _, row := range employeeList.DataRows() {
		if len(row) == 0 {
			continue
		}
		label := reports.NormalizeIdentity(row[0])

		if strings.HasPrefix(label, reports.DepartmentPrefix) && populated(row[1:]) < employeeWidth {
			current = strings.TrimSpace(strings.TrimPrefix(label, reports.DepartmentPrefix))
			continue
		}
		if !strings.Contains(label, reports.IdentitySeparator) {
			continue
		}

		department := current
		if department == "" {
			department = OtherDepartment
		}
		m.employees[label] = Employee{
			Identity:    label,
			DisplayName: reports.DisplayName(label),
			Department:  department,
		}
	}

	if len(manual) > 0 {
		m.applyManual(manual)
	}
	return m
}

// applyManual reassigns every employee from the manual mapping. Identities the mapping
// does not cover move to OtherDepartment; manually grouped identities that are missing
// from the employee list are added.
func (m *IdentityMap) applyManual(manual ManualMapping) {
	identityToGroups := manual.byIdentity()

	for identity, emp := range m.employees {
		emp.Department = OtherDepartment
		if groups := identityToGroups[identity]; len(groups) > 0 {
			emp.Department = groups[0]
		}
		m.employees[identity] = emp
	}

	for identity, groups := range identityToGroups {
		if _, ok := m.employees[identity]; ok {
			continue
		}
		m.employees[identity] = Employee{
			Identity:    identity,
			DisplayName: reports.DisplayName(identity),
			Department:  groups[0],
		}
	}
}

func populated(cells []string) int {
	n := 0
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}

// Len returns the number of employees.
func (m IdentityMap) Len() int {
	return len(m.employees)
}

// Lookup returns the employee with the given identity.
func (m IdentityMap) Lookup(identity string) (Employee, bool) {
	emp, ok := m.employees[reports.NormalizeIdentity(identity)]
	return emp, ok
}

// Identities returns every identity in sorted order.
func (m IdentityMap) Identities() []string {
	ids := make([]string, 0, len(m.employees))
	for id := range m.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Employees returns every employee sorted by identity.
func (m IdentityMap) Employees() []Employee {
	ids := m.Identities()
	out := make([]Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.employees[id])
	}
	return out
}

// ByDepartment groups employees by department, each group sorted by identity.
func (m IdentityMap) ByDepartment() map[string][]Employee {
	grouped := make(map[string][]Employee)
	for _, emp := range m.Employees() {
		grouped[emp.Department] = append(grouped[emp.Department], emp)
	}
	return grouped
}

// Departments returns the departments with their headcount, sorted by name.
func (m IdentityMap) Departments() []Department {
	grouped := m.ByDepartment()
	out := make([]Department, 0, len(grouped))
	for name, emps := range grouped {
		out = append(out, Department{Name: name, Headcount: len(emps)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// DepartmentNames returns the sorted department names.
func (m IdentityMap) DepartmentNames() []string {
	departments := m.Departments()
	names := make([]string, len(departments))
	for i, d := range departments {
		names[i] = d.Name
	}
	return names
}

// Match resolves a name as printed in another report to an employee.
func (m IdentityMap) Match(candidate string) (Employee, bool) {
	id, ok := MatchByNormalizedName(candidate, m.Identities())
	if !ok {
		return Employee{}, false
	}
	return m.employees[id], true
}

// MatchByNormalizedName finds the identity that a report label refers to. A label matches
// an identity when both normalize to the same text, or when the identity is the label
// followed by " - " and an employee ID. The first match in sorted identity order wins;
// there is no fuzzy matching.
func MatchByNormalizedName(candidate string, identities []string) (string, bool) {
	c := reports.NormalizeIdentity(candidate)
	if c == "" {
		return "", false
	}

	sorted := make([]string, len(identities))
	copy(sorted, identities)
	sort.Strings(sorted)

	for _, id := range sorted {
		n := reports.NormalizeIdentity(id)
		if n == c || strings.HasPrefix(n, c+reports.IdentitySeparator) {
			return id, true
		}
	}
	return "", false
}
