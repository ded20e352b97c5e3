package reports

import "strings"

// fingerprints holds the exact header substring that identifies each report layout.
// Recognition is deliberately a strict substring check: a paste that lacks the
// fingerprint is rejected as a whole.
var fingerprints = map[Kind]string{
	KindSummaryCumulative:     "Tên miền\tDTLK\tDTQĐ\tTarget (QĐ)\t% HT Target (QĐ)",
	KindSummaryRealtime:       "Tên miền\tDT Realtime\tDTQĐ Realtime\tTarget Ngày (QĐ)\t% HT Target Ngày (QĐ)",
	KindIndustryCumulative:    "Nhóm ngành hàng\tSLLK\tDTLK\tDTQĐ",
	KindIndustryRealtime:      "Nhóm ngành hàng\tSL Realtime\tDT Realtime\tDTQĐ Realtime",
	KindCompetitionCumulative: "Thi đua lũy kế",
	KindCompetitionRealtime:   "Thi đua realtime",
	KindInstallment:           "Nhân viên\tSL Trả góp\tDT Trả góp\tTỷ lệ Trả góp",
	KindEmployeeList:          "Nhân viên\tDTLK\tDTQĐ\tHiệu quả QĐ",
}

// Fingerprint returns the header substring that identifies kind.
func Fingerprint(kind Kind) string {
	return fingerprints[kind]
}

// Validate reports whether raw contains the fingerprint of kind.
func Validate(kind Kind, raw string) bool {
	fp, ok := fingerprints[kind]
	if !ok || fp == "" {
		return false
	}
	return strings.Contains(canonicalText(raw), fp)
}

// Detect returns the first kind whose fingerprint appears in raw.
func Detect(raw string) (Kind, bool) {
	text := canonicalText(raw)
	for _, kind := range AllKinds {
		if strings.Contains(text, fingerprints[kind]) {
			return kind, true
		}
	}
	return "", false
}

// canonicalText unifies line endings and Unicode composition so that a paste from a
// browser on another platform still carries a recognizable fingerprint.
func canonicalText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return normNFC(raw)
}
