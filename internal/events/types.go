// Package events provides event management functionality.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents different event types
type EventType string

const (
	// Store notifications
	KeyChanged        EventType = "KEY_CHANGED"
	PersistenceFailed EventType = "PERSISTENCE_FAILED"

	// Dashboard slot lifecycle
	SlotUpdated  EventType = "SLOT_UPDATED"
	SlotRejected EventType = "SLOT_REJECTED"
	SlotCleared  EventType = "SLOT_CLEARED"

	// Configuration and maintenance
	ConfigChanged   EventType = "CONFIG_CHANGED"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type, for subscribers that want everything.
var AllEventTypes = []EventType{
	KeyChanged,
	PersistenceFailed,
	SlotUpdated,
	SlotRejected,
	SlotCleared,
	ConfigChanged,
	BackupCompleted,
	ErrorOccurred,
}

// Event represents a system event
// Data carries the JSON form of an EventData value; GetTypedData converts it back.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// GetTypedData attempts to convert the Data map to typed EventData
// Returns the typed data if conversion is successful, nil otherwise
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	data := newEventData(e.Type)
	if data == nil {
		return nil
	}
	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// convertEventDataToMap converts typed EventData to the map carried by Event
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
