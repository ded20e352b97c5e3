package reports

import (
	"strings"
)

// Criterion is the measurement axis of a competition program.
type Criterion string

const (
	CriterionRevenueRaw       Criterion = "revenue_raw"
	CriterionRevenueConverted Criterion = "revenue_converted"
	CriterionQuantity         Criterion = "quantity"
)

// AllCriteria lists criteria in display order.
var AllCriteria = []Criterion{CriterionRevenueConverted, CriterionRevenueRaw, CriterionQuantity}

// criterionTokens maps the metrics-row tokens of the portal to criteria.
var criterionTokens = map[string]Criterion{
	"DT":   CriterionRevenueRaw,
	"DTQĐ": CriterionRevenueConverted,
	"SL":   CriterionQuantity,
}

// programWidth is the number of cells each program occupies in a data row.
const programWidth = 3

// CriterionHeaders returns the column names of a program's values for criterion.
func CriterionHeaders(c Criterion) []string {
	if c == CriterionQuantity {
		return []string{"Target SL", "SL thực hiện", ColCompetitionCompletion}
	}
	return []string{ColCompetitionTarget, ColCompetitionActual, ColCompetitionCompletion}
}

// CompetitionProgram is one program's figures for one row label.
type CompetitionProgram struct {
	Name      string    `json:"name"`
	Criterion Criterion `json:"criterion"`
	Values    []string  `json:"values"`
}

// Target is the program's target value.
func (p CompetitionProgram) Target() float64 { return p.value(0) }

// Actual is the program's achieved value.
func (p CompetitionProgram) Actual() float64 { return p.value(1) }

// ReportedCompletion is the completion percentage printed by the portal.
func (p CompetitionProgram) ReportedCompletion() float64 { return p.value(2) }

func (p CompetitionProgram) value(i int) float64 {
	if i >= len(p.Values) {
		return 0
	}
	return ParseLocaleNumber(p.Values[i])
}

// CompetitionReport holds the programs of every row label (store, total or employee) in
// order of first appearance.
type CompetitionReport struct {
	Labels   []string                        `json:"labels"`
	Programs map[string][]CompetitionProgram `json:"programs"`
}

// CompetitionRules tells the parser which row labels start a data row.
type CompetitionRules struct {
	LocationPrefixes []string
}

// parseState is the position of the competition scanner inside a block.
type parseState int

const (
	awaitingTitle parseState = iota
	awaitingMetrics
	consumingRows
)

type programTitle struct {
	name      string
	criterion Criterion
}

// competitionScanner walks a competition report line by line. The report repeats one
// tabular shape per block of programs; a row carries no program label, so the programs
// of the current block are the running context for every row that follows it.
type competitionScanner struct {
	rules      CompetitionRules
	state      parseState
	markerSeen bool
	titles     []string
	block      []programTitle
	report     CompetitionReport
}

// ParseCompetitionReport parses the multi-block competition layout:
//
//	Phòng ban            <- department marker, may carry titles as extra cells
//	<title>              <- one line per program title
//	DTQĐ  DT  SL         <- metrics row, one criterion per title by position
//	Tổng  t a %  t a %   <- data rows: label + 3 cells per program
//	ĐMX_...
//
// A new department marker starts another block.
func ParseCompetitionReport(raw string, rules CompetitionRules) CompetitionReport {
	if len(rules.LocationPrefixes) == 0 {
		rules.LocationPrefixes = DefaultLocationPrefixes
	}
	s := &competitionScanner{
		rules:  rules,
		report: CompetitionReport{Programs: make(map[string][]CompetitionProgram)},
	}
	for _, line := range splitLines(raw) {
		cells := trimTrailingEmpty(splitCells(line))
		if len(cells) == 0 {
			continue
		}
		s.scan(cells)
	}
	return s.report
}

func (s *competitionScanner) scan(cells []string) {
	if isDepartmentMarker(cells[0]) {
		s.state = awaitingTitle
		s.markerSeen = true
		s.titles = s.titles[:0]
		s.block = nil
		s.addTitles(cells[1:])
		if len(s.titles) > 0 {
			s.state = awaitingMetrics
		}
		return
	}

	switch s.state {
	case awaitingTitle:
		if !s.markerSeen {
			return
		}
		s.addTitles(cells)
		s.state = awaitingMetrics

	case awaitingMetrics:
		if criteria, ok := metricsRow(cells); ok {
			s.block = assignCriteria(s.titles, criteria)
			s.state = consumingRows
			return
		}
		s.addTitles(cells)

	case consumingRows:
		if !s.isDataRow(cells) {
			return
		}
		s.attach(cells)
	}
}

func (s *competitionScanner) addTitles(cells []string) {
	for _, title := range cells {
		if title != "" {
			s.titles = append(s.titles, title)
		}
	}
}

func (s *competitionScanner) isDataRow(cells []string) bool {
	label := cells[0]
	if IsTotalLabel(label) {
		return true
	}
	for _, prefix := range s.rules.LocationPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	return len(cells) > 1 && IsNumericCell(cells[1])
}

// attach splits a data row into one value group per program of the current block.
func (s *competitionScanner) attach(cells []string) {
	label := cells[0]
	values := cells[1:]

	existing, seen := s.report.Programs[label]
	if !seen {
		s.report.Labels = append(s.report.Labels, label)
	}

	for i, title := range s.block {
		group := make([]string, programWidth)
		start := i * programWidth
		if start < len(values) {
			copy(group, values[start:min(start+programWidth, len(values))])
		}
		program := CompetitionProgram{Name: title.name, Criterion: title.criterion, Values: group}
		existing = upsertProgram(existing, program)
	}
	s.report.Programs[label] = existing
}

func upsertProgram(programs []CompetitionProgram, p CompetitionProgram) []CompetitionProgram {
	for i := range programs {
		if programs[i].Name == p.Name {
			programs[i] = p
			return programs
		}
	}
	return append(programs, p)
}

func isDepartmentMarker(label string) bool {
	return strings.HasPrefix(NormalizeIdentity(label), CompetitionDepartmentMarker)
}

// metricsRow reports whether every non-empty cell of the line is a criterion token.
func metricsRow(cells []string) ([]Criterion, bool) {
	var criteria []Criterion
	for _, c := range cells {
		if c == "" {
			continue
		}
		criterion, ok := criterionTokens[NormalizeIdentity(c)]
		if !ok {
			return nil, false
		}
		criteria = append(criteria, criterion)
	}
	return criteria, len(criteria) > 0
}

// assignCriteria pairs titles with criteria by position. Titles without a criterion are
// dropped.
func assignCriteria(titles []string, criteria []Criterion) []programTitle {
	n := min(len(titles), len(criteria))
	block := make([]programTitle, 0, n)
	for i := 0; i < n; i++ {
		block = append(block, programTitle{name: titles[i], criterion: criteria[i]})
	}
	return block
}

// FindLabel returns the first label matching code (see LabelMatches). TotalLabel finds
// the total row.
func (r CompetitionReport) FindLabel(code string) (string, bool) {
	for _, label := range r.Labels {
		if (code == TotalLabel && IsTotalLabel(label)) || LabelMatches(label, code) {
			return label, true
		}
	}
	return "", false
}

// Find returns the programs of the row FindLabel selects.
func (r CompetitionReport) Find(code string) ([]CompetitionProgram, bool) {
	label, ok := r.FindLabel(code)
	if !ok {
		return nil, false
	}
	return r.Programs[label], true
}

// ProgramNames returns the distinct program names in order of first appearance.
func (r CompetitionReport) ProgramNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, label := range r.Labels {
		for _, p := range r.Programs[label] {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}
	return names
}

// ByCriterion groups the programs of label by criterion.
func (r CompetitionReport) ByCriterion(label string) map[Criterion][]CompetitionProgram {
	grouped := make(map[Criterion][]CompetitionProgram)
	for _, p := range r.Programs[label] {
		grouped[p.Criterion] = append(grouped[p.Criterion], p)
	}
	return grouped
}

// Tables renders the programs of label as one ParsedTable per criterion.
func (r CompetitionReport) Tables(label string) map[Criterion]ParsedTable {
	tables := make(map[Criterion]ParsedTable)
	for criterion, programs := range r.ByCriterion(label) {
		table := ParsedTable{Headers: append([]string{ColCompetitionProgram}, CriterionHeaders(criterion)...)}
		for _, p := range programs {
			table.Rows = append(table.Rows, append([]string{p.Name}, p.Values...))
		}
		tables[criterion] = table
	}
	return tables
}
