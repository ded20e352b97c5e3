// Package exporter renders the dashboard snapshot as an Excel workbook.
package exporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/aristath/reportdesk/internal/modules/dashboard"
	"github.com/aristath/reportdesk/internal/modules/metrics"
	"github.com/aristath/reportdesk/internal/modules/reports"
)

// Sheet names of the exported workbook.
const (
	SheetSummary      = "Tổng quan"
	SheetIndustries   = "Ngành hàng"
	SheetDepartments  = "Bộ phận"
	SheetEmployees    = "Nhân viên"
	SheetCompetition  = "Thi đua"
	SheetInstallments = "Trả góp"
)

// sheet is one worksheet: a header row followed by data rows.
type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// WriteWorkbook writes snap to w as an .xlsx workbook with one sheet per view.
func WriteWorkbook(w io.Writer, snap dashboard.Snapshot) error {
	wb := excelize.NewFile()
	defer wb.Close()

	headerStyle, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []sheet{
		summarySheet(snap),
		industrySheet(snap),
		departmentSheet(snap),
		employeeSheet(snap),
		competitionSheet(snap),
		installmentSheet(snap),
	}

	defaultSheet := wb.GetSheetName(wb.GetActiveSheetIndex())
	for i, s := range sheets {
		if i == 0 {
			if err := wb.SetSheetName(defaultSheet, s.name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := wb.NewSheet(s.name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(wb, s, headerStyle); err != nil {
			return err
		}
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(wb *excelize.File, s sheet, headerStyle int) error {
	if err := wb.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", s.name, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
	if err := wb.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", s.name, err)
	}

	for i := range s.rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := wb.SetSheetRow(s.name, cell, &s.rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, s.name, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(s.header))
	if err := wb.SetColWidth(s.name, "A", "A", 36); err != nil {
		return fmt.Errorf("failed to size columns of %s: %w", s.name, err)
	}
	if len(s.header) > 1 {
		if err := wb.SetColWidth(s.name, "B", lastCol, 16); err != nil {
			return fmt.Errorf("failed to size columns of %s: %w", s.name, err)
		}
	}
	return nil
}

func summarySheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name: SheetSummary,
		header: []interface{}{"Phạm vi", "DT", "DTQĐ", "Target", "% HT", "Hiệu quả QĐ",
			"Target ngày", "Dự kiến cuối tháng", "% HT dự kiến", "Diễn giải"},
	}
	if k := snap.Summary.Cumulative; k != nil {
		s.rows = append(s.rows, []interface{}{"Lũy kế", k.RawRevenue, k.ConvertedRevenue, k.Target,
			k.CompletionPct, k.Efficiency, k.DailyTarget, k.ProjectedMonthEnd, k.ProjectedCompletion,
			completionCaption(k.ConvertedRevenue, k.Target, k.CompletionPct)})
	}
	if k := snap.Summary.Realtime; k != nil {
		s.rows = append(s.rows, []interface{}{"Realtime", k.RawRevenue, k.ConvertedRevenue, k.Target,
			k.CompletionPct, k.Efficiency, k.DailyTarget, nil, nil,
			completionCaption(k.ConvertedRevenue, k.Target, k.CompletionPct)})
	}
	s.rows = append(s.rows, []interface{}{"Target tháng", nil, nil, snap.Target.Value, nil, nil, nil, nil, nil,
		fmt.Sprintf("%s x %s", metrics.FormatNumber(snap.Target.Base, 0), metrics.FormatPercent(snap.Target.AdjustPct))})
	return s
}

// completionCaption renders "actual / target (pct%)" with local digit grouping.
func completionCaption(actual, target, pct float64) string {
	return fmt.Sprintf("%s / %s (%s)", metrics.FormatNumber(actual, 0), metrics.FormatNumber(target, 0), metrics.FormatPercent(pct))
}

func industrySheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name:   SheetIndustries,
		header: []interface{}{"Nhóm ngành hàng", "Phạm vi", "SL", "DT", "DTQĐ", "Hiệu quả QĐ", "Tỷ trọng"},
	}
	for _, k := range snap.Industries.Cumulative {
		s.rows = append(s.rows, []interface{}{k.Group, "Lũy kế", k.Quantity, k.RawRevenue, k.ConvertedRevenue, k.Efficiency, k.SharePct})
	}
	for _, k := range snap.Industries.Realtime {
		s.rows = append(s.rows, []interface{}{k.Group, "Realtime", k.Quantity, k.RawRevenue, k.ConvertedRevenue, k.Efficiency, k.SharePct})
	}
	return s
}

func departmentSheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name:   SheetDepartments,
		header: []interface{}{"Bộ phận", "Tỷ trọng", "Target", "Số nhân viên", "Target/nhân viên", "Tỷ trọng thực tế", "Chênh lệch"},
	}
	groups := make(map[string][2]float64, len(snap.Departments.Groups))
	for _, g := range snap.Departments.Groups {
		groups[g.Name] = [2]float64{g.CurrentPct, g.Deviation}
	}
	for _, a := range snap.Departments.Allocations {
		g := groups[a.Department]
		s.rows = append(s.rows, []interface{}{a.Department, a.WeightPct, a.Target, a.Headcount, a.PerEmployee, g[0], g[1]})
	}
	return s
}

func employeeSheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name:   SheetEmployees,
		header: []interface{}{"Nhân viên", "Bộ phận", "DT", "DTQĐ", "Hiệu quả QĐ", "Target", "% HT"},
	}
	for _, e := range snap.Employees {
		s.rows = append(s.rows, []interface{}{e.Identity, e.Department, e.RawRevenue, e.ConvertedRevenue, e.Efficiency, e.Target, e.CompletionPct})
	}
	return s
}

func competitionSheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name:   SheetCompetition,
		header: []interface{}{"Chương trình", "Phạm vi", "Đối tượng", "Tiêu chí", "Target", "Thực hiện", "% HT", "Tỷ trọng"},
	}
	add := func(scope string, view *dashboard.CompetitionView) {
		if view == nil {
			return
		}
		for _, p := range view.Programs {
			s.rows = append(s.rows, []interface{}{p.Program, scope, view.Label, string(p.Criterion), p.Target, p.Actual, p.CompletionPct, p.WeightPct})
		}
		for _, e := range view.Employees {
			for _, p := range e.Programs {
				s.rows = append(s.rows, []interface{}{p.Program, scope, e.Identity, string(p.Criterion), p.AssignedTarget, p.Actual, p.CompletionPct, nil})
			}
		}
	}
	add("Lũy kế", snap.Competition.Cumulative)
	add("Realtime", snap.Competition.Realtime)

	sort.SliceStable(s.rows, func(i, j int) bool {
		return s.rows[i][0].(string) < s.rows[j][0].(string)
	})
	return s
}

func installmentSheet(snap dashboard.Snapshot) sheet {
	s := sheet{
		name:   SheetInstallments,
		header: []interface{}{reports.ColEmployee, "Bộ phận", reports.ColInstallmentCount, reports.ColInstallmentRevenue, reports.ColInstallmentRate},
	}
	for _, k := range snap.Installments {
		s.rows = append(s.rows, []interface{}{k.Identity, k.Department, k.Count, k.Revenue, k.RatePct})
	}
	return s
}
