package domain

import "time"

type EventType string

const (
	EventTransitioned EventType = "transitioned"
	EventConfirmed    EventType = "confirmed"
	EventConflict     EventType = "conflict"
	EventSyncFailed   EventType = "syncFailed"
	EventRolledBack   EventType = "rolledBack"
)

type Event struct {
	ID         string
	Type       EventType
	RecordID   RecordID
	Detail     string
	Local      *CustomerRecord
	Remote     *CustomerRecord
	OccurredAt time.Time
}
