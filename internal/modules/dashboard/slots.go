package dashboard

import (
	"time"

	"github.com/aristath/reportdesk/internal/modules/reports"
)

// InvalidFormatMessage is shown next to a slot whose paste was rejected.
const InvalidFormatMessage = "Dữ liệu không đúng định dạng, vui lòng kiểm tra lại"

// SlotStatus is the state of one report slot.
type SlotStatus string

const (
	SlotEmpty   SlotStatus = "empty"
	SlotValid   SlotStatus = "valid"
	SlotInvalid SlotStatus = "invalid"
)

// SlotState describes a slot for views. Raw text is not included; see Service.Raw.
type SlotState struct {
	Kind      reports.Kind `json:"kind"`
	Status    SlotStatus   `json:"status"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
	Error     string       `json:"error,omitempty"`
	Bytes     int          `json:"bytes"`
}

// Updated reports whether the slot holds a valid, timestamped paste.
func (s SlotState) Updated() bool {
	return s.Status == SlotValid && s.UpdatedAt != nil
}

// slot is the raw text of one report plus its validation outcome. It is replaced
// wholesale on every paste.
type slot struct {
	raw       string
	status    SlotStatus
	updatedAt *time.Time
}

func (s slot) state(kind reports.Kind) SlotState {
	st := SlotState{Kind: kind, Status: s.status, Bytes: len(s.raw)}
	if st.Status == "" {
		st.Status = SlotEmpty
	}
	if s.updatedAt != nil {
		t := *s.updatedAt
		st.UpdatedAt = &t
	}
	if s.status == SlotInvalid {
		st.Error = InvalidFormatMessage
	}
	return st
}
