package events

import "time"

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// KeyChangedData contains data for KeyChanged events
type KeyChangedData struct {
	Key     string `json:"key"`
	Origin  string `json:"origin,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// EventType returns the event type for KeyChangedData
func (d *KeyChangedData) EventType() EventType {
	return KeyChanged
}

// PersistenceFailedData contains data for PersistenceFailed events
type PersistenceFailedData struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// EventType returns the event type for PersistenceFailedData
func (d *PersistenceFailedData) EventType() EventType {
	return PersistenceFailed
}

// SlotUpdatedData contains data for SlotUpdated events
type SlotUpdatedData struct {
	Slot      string    `json:"slot"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventType returns the event type for SlotUpdatedData
func (d *SlotUpdatedData) EventType() EventType {
	return SlotUpdated
}

// SlotRejectedData contains data for SlotRejected events
type SlotRejectedData struct {
	Slot    string `json:"slot"`
	Message string `json:"message"`
}

// EventType returns the event type for SlotRejectedData
func (d *SlotRejectedData) EventType() EventType {
	return SlotRejected
}

// SlotClearedData contains data for SlotCleared events
type SlotClearedData struct {
	Slot string `json:"slot"`
}

// EventType returns the event type for SlotClearedData
func (d *SlotClearedData) EventType() EventType {
	return SlotCleared
}

// ConfigChangedData contains data for ConfigChanged events
type ConfigChangedData struct {
	Key string `json:"key"`
}

// EventType returns the event type for ConfigChangedData
func (d *ConfigChangedData) EventType() EventType {
	return ConfigChanged
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	BackupID    string `json:"backup_id"`
	Entries     int    `json:"entries"`
	Destination string `json:"destination"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// newEventData returns an empty EventData value for eventType, or nil
func newEventData(eventType EventType) EventData {
	switch eventType {
	case KeyChanged:
		return &KeyChangedData{}
	case PersistenceFailed:
		return &PersistenceFailedData{}
	case SlotUpdated:
		return &SlotUpdatedData{}
	case SlotRejected:
		return &SlotRejectedData{}
	case SlotCleared:
		return &SlotClearedData{}
	case ConfigChanged:
		return &ConfigChangedData{}
	case BackupCompleted:
		return &BackupCompletedData{}
	case ErrorOccurred:
		return &ErrorEventData{}
	}
	return nil
}
