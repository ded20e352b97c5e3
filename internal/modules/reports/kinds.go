// Package reports recognizes and parses the tab-separated reports pasted from the BI portal.
//
// Everything in this package is a pure function of its input text: no I/O, no logging,
// no clock. Absent or malformed values degrade to zero values instead of errors.
package reports

import (
	"errors"
	"fmt"
)

// Kind identifies one report layout, and therefore one slot on the dashboard.
type Kind string

const (
	KindSummaryRealtime       Kind = "summary_realtime"
	KindSummaryCumulative     Kind = "summary_cumulative"
	KindIndustryRealtime      Kind = "industry_realtime"
	KindIndustryCumulative    Kind = "industry_cumulative"
	KindCompetitionRealtime   Kind = "competition_realtime"
	KindCompetitionCumulative Kind = "competition_cumulative"
	KindInstallment           Kind = "installment"
	KindEmployeeList          Kind = "employee_list"
)

// AllKinds lists every supported report, in detection order.
var AllKinds = []Kind{
	KindSummaryRealtime,
	KindSummaryCumulative,
	KindIndustryRealtime,
	KindIndustryCumulative,
	KindCompetitionRealtime,
	KindCompetitionCumulative,
	KindInstallment,
	KindEmployeeList,
}

// ErrUnknownKind is returned when a slot name does not match any known report.
var ErrUnknownKind = errors.New("unknown report kind")

// ParseKind converts a slot name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsCompetition reports whether the kind uses the multi-block competition layout.
func (k Kind) IsCompetition() bool {
	return k == KindCompetitionRealtime || k == KindCompetitionCumulative
}

// Row labels and markers shared by the portal's layouts.
const (
	// TotalLabel is the label of aggregate rows.
	TotalLabel = "Tổng"
	// DepartmentPrefix starts the department header rows of the employee list.
	DepartmentPrefix = "BP "
	// IdentitySeparator separates an employee's name from their ID ("Name - ID").
	IdentitySeparator = " - "
	// CompetitionDepartmentMarker opens a title block in competition reports.
	CompetitionDepartmentMarker = "Phòng ban"
)

// Column headers read by the metrics calculator.
const (
	ColStoreName            = "Tên miền"
	ColRawCumulative        = "DTLK"
	ColConvertedCumulative  = "DTQĐ"
	ColTargetCumulative     = "Target (QĐ)"
	ColCompletionCumulative = "% HT Target (QĐ)"

	ColRawRealtime        = "DT Realtime"
	ColConvertedRealtime  = "DTQĐ Realtime"
	ColTargetRealtime     = "Target Ngày (QĐ)"
	ColCompletionRealtime = "% HT Target Ngày (QĐ)"

	ColIndustryGroup         = "Nhóm ngành hàng"
	ColQuantityCumulative    = "SLLK"
	ColQuantityRealtime      = "SL Realtime"
	ColEmployee              = "Nhân viên"
	ColInstallmentCount      = "SL Trả góp"
	ColInstallmentRevenue    = "DT Trả góp"
	ColInstallmentRate       = "Tỷ lệ Trả góp"
	ColConvertedEfficiency   = "Hiệu quả QĐ"
	ColCompetitionProgram    = "Chương trình"
	ColCompetitionTarget     = "Target"
	ColCompetitionActual     = "Thực hiện"
	ColCompetitionCompletion = "% HT"
)

// DefaultLocationPrefixes are the store-name prefixes used by the portal when none are configured.
var DefaultLocationPrefixes = []string{"ĐMX", "ĐML", "TGDĐ", "BHX", "TopZone"}
