package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reportdesk/internal/modules/kvstore"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{input: "", expected: FormatJSON},
		{input: "JSON", expected: FormatJSON},
		{input: "application/json; charset=utf-8", expected: FormatJSON},
		{input: "backup-2025.json", expected: FormatJSON},
		{input: "msgpack", expected: FormatMsgpack},
		{input: "application/x-msgpack", expected: FormatMsgpack},
		{input: "reportdesk/backups/backup-1.msgpack", expected: FormatMsgpack},
		{input: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			format, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestDecode_AcceptsBareArrayAndObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Archive
	}{
		{
			name:  "bare array",
			input: `[{"key":"report.installment.raw","value":"x"},{"key":"","value":"dropped"}]`,
			expected: Archive{Data: []kvstore.Entry{
				{Key: "report.installment.raw", Value: "x"},
			}},
		},
		{
			name:  "object",
			input: `{"version":1,"created_at":"2025-04-11T10:00:00Z","backup_id":"b1","data":[{"key":"selection.store","value":"ĐMX_1"}]}`,
			expected: Archive{
				Version:   1,
				CreatedAt: time.Date(2025, time.April, 11, 10, 0, 0, 0, time.UTC),
				BackupID:  "b1",
				Data:      []kvstore.Entry{{Key: "selection.store", Value: "ĐMX_1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive, err := Decode([]byte(tt.input), FormatJSON)
			require.NoError(t, err)
			assert.Equal(t, tt.expected.BackupID, archive.BackupID)
			assert.Equal(t, tt.expected.Version, archive.Version)
			assert.True(t, tt.expected.CreatedAt.Equal(archive.CreatedAt))
			assert.Equal(t, tt.expected.Data, archive.Data)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"data": 3}`), FormatJSON)
	assert.ErrorIs(t, err, ErrMalformedArchive)

	_, err = Decode([]byte{0xc1}, FormatMsgpack)
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestMsgpackArchive(t *testing.T) {
	archive := Archive{
		Version:   ArchiveVersion,
		CreatedAt: time.Date(2025, time.April, 11, 10, 0, 0, 0, time.UTC),
		BackupID:  "b2",
		Data: []kvstore.Entry{
			{Key: "report.employee_list.raw", Value: "Nhân viên\tDTLK\tDTQĐ\tHiệu quả QĐ"},
		},
	}

	data, err := Encode(archive, FormatMsgpack)
	require.NoError(t, err)

	decoded, err := Decode(data, FormatMsgpack)
	require.NoError(t, err)
	assert.Equal(t, archive.Data, decoded.Data)
	assert.Equal(t, archive.BackupID, decoded.BackupID)
	assert.True(t, archive.CreatedAt.Equal(decoded.CreatedAt))
}
