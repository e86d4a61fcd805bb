// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	LogEmitted    EventType = "log"
	StatusChanged EventType = "status"
	Progress      EventType = "progress"
	BestUpdate    EventType = "best_update"
	Finished      EventType = "finished"
	ErrorOccurred EventType = "error"
)

// Droppable reports whether the bus may discard the event when full.
// Best updates and terminal events are always delivered.
func (t EventType) Droppable() bool {
	return t != BestUpdate && t != Finished
}
