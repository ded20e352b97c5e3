package reports

import (
	"fmt"
	"strings"
)

// ParsedTable is a header row plus data rows. Every row has exactly len(Headers) cells.
type ParsedTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Layout describes how a flat report is laid out: where the header row is and which
// lines count as data rows.
type Layout struct {
	// HeaderMarker is the text the header line starts with.
	HeaderMarker string
	// RowPrefixes are known label prefixes of data rows (store names).
	RowPrefixes []string
	// DepartmentPrefix accepts department header rows when set.
	DepartmentPrefix string
	// AcceptEmployees accepts rows whose label contains the identity separator.
	AcceptEmployees bool
	// AcceptNumericRows accepts any labelled row whose second cell is numeric.
	AcceptNumericRows bool
}

// LayoutFor returns the flat layout of kind. Competition kinds have no flat layout and
// get the zero Layout.
func LayoutFor(kind Kind, locationPrefixes []string) Layout {
	if len(locationPrefixes) == 0 {
		locationPrefixes = DefaultLocationPrefixes
	}
	switch kind {
	case KindSummaryRealtime, KindSummaryCumulative:
		return Layout{HeaderMarker: ColStoreName, RowPrefixes: locationPrefixes}
	case KindIndustryRealtime, KindIndustryCumulative:
		return Layout{HeaderMarker: ColIndustryGroup, AcceptNumericRows: true}
	case KindInstallment:
		return Layout{HeaderMarker: ColEmployee, AcceptEmployees: true, AcceptNumericRows: true}
	case KindEmployeeList:
		return Layout{HeaderMarker: ColEmployee, AcceptEmployees: true, DepartmentPrefix: DepartmentPrefix}
	}
	return Layout{}
}

// accepts reports whether a non-total line is a data row of this layout.
func (l Layout) accepts(cells []string) bool {
	label := cells[0]
	for _, prefix := range l.RowPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	if l.DepartmentPrefix != "" && strings.HasPrefix(label, l.DepartmentPrefix) {
		return true
	}
	if l.AcceptEmployees && strings.Contains(label, IdentitySeparator) {
		return true
	}
	if l.AcceptNumericRows && len(cells) > 1 && IsNumericCell(cells[1]) {
		return true
	}
	return false
}

// ParseFlatTable extracts the table that starts at the line beginning with the layout's
// header marker. Data rows are consumed until the second total row or the end of input;
// lines that do not look like data rows (portal footnotes, blank lines) are skipped.
// A text without a header line yields an empty table.
func ParseFlatTable(raw string, layout Layout) ParsedTable {
	lines := splitLines(raw)

	headerIdx := -1
	for i, line := range lines {
		if layout.HeaderMarker != "" && strings.HasPrefix(strings.TrimSpace(line), layout.HeaderMarker) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return ParsedTable{}
	}

	table := ParsedTable{Headers: uniqueHeaders(trimTrailingEmpty(splitCells(lines[headerIdx])))}
	width := len(table.Headers)

	totals := 0
	for _, line := range lines[headerIdx+1:] {
		cells := splitCells(line)
		if len(cells) == 0 || cells[0] == "" {
			continue
		}
		if IsTotalLabel(cells[0]) {
			totals++
			if totals == 2 {
				break
			}
		} else if !layout.accepts(cells) {
			continue
		}
		table.Rows = append(table.Rows, fitRow(cells, width))
	}

	return table
}

// Serialize renders the table back to tab-separated text. Parsing the result with the
// same layout yields an equal table.
func (t ParsedTable) Serialize() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Headers, "\t"))
	for _, row := range t.Rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join(row, "\t"))
	}
	return b.String()
}

// IsEmpty reports whether the table has no header.
func (t ParsedTable) IsEmpty() bool {
	return len(t.Headers) == 0
}

// Column returns the index of header, or -1.
func (t ParsedTable) Column(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Cell returns the cell of row under header, or "" when the column does not exist.
func (t ParsedTable) Cell(row []string, header string) string {
	idx := t.Column(header)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Number parses the cell of row under header.
func (t ParsedTable) Number(row []string, header string) float64 {
	return ParseLocaleNumber(t.Cell(row, header))
}

// FindRow returns the first row whose label matches code (see LabelMatches). The total
// row is found with TotalLabel.
func (t ParsedTable) FindRow(code string) ([]string, bool) {
	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		if code == TotalLabel && IsTotalLabel(row[0]) {
			return row, true
		}
		if LabelMatches(row[0], code) {
			return row, true
		}
	}
	return nil, false
}

// DataRows returns every row except total rows.
func (t ParsedTable) DataRows() [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) > 0 && IsTotalLabel(row[0]) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func splitLines(raw string) []string {
	return strings.Split(canonicalText(raw), "\n")
}

func splitCells(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	cells := strings.Split(line, "\t")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}

// uniqueHeaders names empty headers by position and suffixes duplicates with " (n)".
func uniqueHeaders(cells []string) []string {
	seen := make(map[string]bool, len(cells))
	headers := make([]string, len(cells))
	for i, c := range cells {
		name := c
		if name == "" {
			name = fmt.Sprintf("Cột %d", i+1)
		}
		if seen[name] {
			base := name
			for n := 2; seen[name]; n++ {
				name = fmt.Sprintf("%s (%d)", base, n)
			}
		}
		seen[name] = true
		headers[i] = name
	}
	return headers
}

// fitRow pads or truncates cells to width.
func fitRow(cells []string, width int) []string {
	row := make([]string, width)
	copy(row, cells)
	return row
}
