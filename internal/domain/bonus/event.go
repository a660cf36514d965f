package bonus

import "time"

// EventType is the kind of row change carried by the change feed
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is a decoded change feed message. Inserts and updates carry New;
// deletes carry Old, of which only the ID is guaranteed.
type ChangeEvent struct {
	Type        EventType
	New         *Record
	Old         *Record
	CommittedAt time.Time
}
