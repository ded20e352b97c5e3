package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryCumulative = "Báo cáo doanh thu lũy kế\n" +
	"Tên miền\tDTLK\tDTQĐ\tTarget (QĐ)\t% HT Target (QĐ)\n" +
	"Tổng\t1000\t1200\t1000\t120%\n" +
	"ĐMX_HCM_123 - Quận 1\t600\t700\t500\t140%\n" +
	"Ghi chú: số liệu cập nhật mỗi giờ\n" +
	"ĐMX_HCM_456 - Quận 3\t400\t500\n" +
	"Tổng\t1000\t1200\t1000\t120%\n" +
	"ĐMX_HCM_789 - Quận 5\t1\t1\t1\t100%\n"

func TestParseFlatTable_SingleTotalRow(t *testing.T) {
	raw := "Tên miền\tDTLK\tDTQĐ\tTarget (QĐ)\t% HT Target (QĐ)\nTổng\t1000\t1200\t1000\t120%"

	table := ParseFlatTable(raw, LayoutFor(KindSummaryCumulative, nil))

	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"Tên miền", "DTLK", "DTQĐ", "Target (QĐ)", "% HT Target (QĐ)"}, table.Headers)
	row, ok := table.FindRow(TotalLabel)
	require.True(t, ok)
	assert.Equal(t, 1200.0, table.Number(row, ColConvertedCumulative))
	assert.Equal(t, 120.0, table.Number(row, ColCompletionCumulative))
}

func TestParseFlatTable_StopsAtSecondTotal(t *testing.T) {
	table := ParseFlatTable(summaryCumulative, LayoutFor(KindSummaryCumulative, nil))

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Tổng", table.Rows[0][0])
	assert.Equal(t, "ĐMX_HCM_123 - Quận 1", table.Rows[1][0])
	assert.Equal(t, "ĐMX_HCM_456 - Quận 3", table.Rows[2][0])
	_, ok := table.FindRow("ĐMX_HCM_789")
	assert.False(t, ok)
}

func TestParseFlatTable_RowWidth(t *testing.T) {
	table := ParseFlatTable(summaryCumulative+"\n", LayoutFor(KindSummaryCumulative, nil))
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Headers))
	}

	short := table.Rows[2]
	assert.Equal(t, "", short[3])
	assert.Equal(t, "", short[4])

	long := ParseFlatTable("Tên miền\tDTLK\nĐMX_1\t1\t2\t3", LayoutFor(KindSummaryCumulative, nil))
	require.Len(t, long.Rows, 1)
	assert.Equal(t, []string{"ĐMX_1", "1"}, long.Rows[0])
}

func TestParseFlatTable_UniqueHeaders(t *testing.T) {
	raw := "Nhóm ngành hàng\tDTLK\tDTLK\t\tDTLK\nTivi\t1\t2\t3\t4"

	table := ParseFlatTable(raw, LayoutFor(KindIndustryCumulative, nil))

	assert.Equal(t, []string{"Nhóm ngành hàng", "DTLK", "DTLK (2)", "Cột 4", "DTLK (3)"}, table.Headers)
	require.Len(t, table.Rows, 1)
}

func TestParseFlatTable_NoHeader(t *testing.T) {
	table := ParseFlatTable("nothing to see\n1\t2", LayoutFor(KindSummaryCumulative, nil))
	assert.True(t, table.IsEmpty())
	assert.Empty(t, table.Rows)
}

func TestParseFlatTable_Layouts(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		raw    string
		labels []string
	}{
		{
			name:   "industry accepts numeric rows",
			kind:   KindIndustryCumulative,
			raw:    "Nhóm ngành hàng\tSLLK\tDTLK\tDTQĐ\nTổng\t10\t100\t120\nTivi\t4\t50\t60\nGhi chú\tx\nMáy lạnh\t6\t50\t60",
			labels: []string{"Tổng", "Tivi", "Máy lạnh"},
		},
		{
			name:   "employee list keeps departments and employees",
			kind:   KindEmployeeList,
			raw:    "Nhân viên\tDTLK\tDTQĐ\tHiệu quả QĐ\nBP Điện thoại\nNguyễn Văn A - 1\t10\t12\t20%\nTrần B - 2\t5\t5\t0%\nCập nhật lúc 10:00",
			labels: []string{"BP Điện thoại", "Nguyễn Văn A - 1", "Trần B - 2"},
		},
		{
			name:   "summary uses custom prefixes",
			kind:   KindSummaryRealtime,
			raw:    "Tên miền\tDT Realtime\tDTQĐ Realtime\tTarget Ngày (QĐ)\t% HT Target Ngày (QĐ)\nABC_1\t1\t1\t1\t1\nĐMX_1\t2\t2\t2\t2",
			labels: []string{"ABC_1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prefixes []string
			if tt.kind == KindSummaryRealtime {
				prefixes = []string{"ABC"}
			}
			table := ParseFlatTable(tt.raw, LayoutFor(tt.kind, prefixes))
			var labels []string
			for _, row := range table.Rows {
				labels = append(labels, row[0])
			}
			assert.Equal(t, tt.labels, labels)
		})
	}
}

func TestParsedTable_RoundTrip(t *testing.T) {
	layout := LayoutFor(KindSummaryCumulative, nil)
	table := ParseFlatTable(summaryCumulative, layout)

	again := ParseFlatTable(table.Serialize(), layout)

	assert.Equal(t, table, again)
}

func TestParseFlatTable_Idempotent(t *testing.T) {
	layout := LayoutFor(KindSummaryCumulative, nil)
	assert.Equal(t, ParseFlatTable(summaryCumulative, layout), ParseFlatTable(summaryCumulative, layout))
}

func TestParsedTable_DataRows(t *testing.T) {
	table := ParseFlatTable(summaryCumulative, LayoutFor(KindSummaryCumulative, nil))
	rows := table.DataRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "ĐMX_HCM_123 - Quận 1", rows[0][0])
}
