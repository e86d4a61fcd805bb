package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// LogData carries a user-facing log line.
type LogData struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Tag   string `json:"tag,omitempty"`
}

// EventType returns the event type for LogData
func (d *LogData) EventType() EventType {
	return LogEmitted
}

// StatusData carries a short status line.
type StatusData struct {
	Text string `json:"text"`
}

// EventType returns the event type for StatusData
func (d *StatusData) EventType() EventType {
	return StatusChanged
}

// ProgressData is a snapshot of a running job.
// Explore fills Evaluated, StallCycles and QueueLength; GenerateSets fills SetIndex and Total.
type ProgressData struct {
	Mode            string         `json:"mode"`
	Evaluated       int            `json:"evaluated"`
	SetIndex        int            `json:"set_index,omitempty"`
	Total           int            `json:"total,omitempty"`
	CandidateStreak int            `json:"candidate_streak"`
	BestStreak      int            `json:"best_streak"`
	StallCycles     int            `json:"stall_cycles,omitempty"`
	QueueLength     int            `json:"queue_length,omitempty"`
	ElapsedSeconds  float64        `json:"elapsed_seconds"`
	Params          map[string]any `json:"params,omitempty"`
}

// EventType returns the event type for ProgressData
func (d *ProgressData) EventType() EventType {
	return Progress
}

// BestUpdateData announces a strictly better vector.
type BestUpdateData struct {
	Params map[string]any `json:"params"`
	Streak int            `json:"streak"`
}

// EventType returns the event type for BestUpdateData
func (d *BestUpdateData) EventType() EventType {
	return BestUpdate
}

// FinishedData is the terminal event of a job.
type FinishedData struct {
	Message    string         `json:"message"`
	Success    bool           `json:"success"`
	Reason     string         `json:"reason"`
	SetsTested *int           `json:"sets_tested,omitempty"`
	BestStreak int            `json:"best_streak"`
	BestParams map[string]any `json:"best_params,omitempty"`
	Artifact   string         `json:"artifact,omitempty"`
}

// EventType returns the event type for FinishedData
func (d *FinishedData) EventType() EventType {
	return Finished
}

// ErrorEventData contains data for error events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// Event is one published event. JobID ties it to the job that produced it.
type Event struct {
	JobID     string    `json:"job_id,omitempty"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		e.Data = nil
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case LogEmitted:
		eventData = &LogData{}
	case StatusChanged:
		eventData = &StatusData{}
	case Progress:
		eventData = &ProgressData{}
	case BestUpdate:
		eventData = &BestUpdateData{}
	case Finished:
		eventData = &FinishedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		return fmt.Errorf("unknown event type %q", aux.Type)
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}
