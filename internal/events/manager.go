package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus   *Bus
	log   zerolog.Logger
	jobID string
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// ForJob returns a manager that stamps every event with jobID.
func (m *Manager) ForJob(jobID string) *Manager {
	return &Manager{
		bus:   m.bus,
		log:   m.log.With().Str("job_id", jobID).Logger(),
		jobID: jobID,
	}
}

// Bus returns the underlying bus.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// EmitTyped emits an event with typed data to the bus and logs it.
// Returns false if the bus dropped the event.
func (m *Manager) EmitTyped(module string, data EventData) bool {
	event := Event{
		JobID:     m.jobID,
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	delivered := true
	if m.bus != nil {
		delivered = m.bus.Publish(event)
	}

	logEvent := m.log.Info()
	switch event.Type {
	case Progress:
		logEvent = m.log.Debug()
	case LogEmitted:
		// Already written by Log at its own level
		logEvent = m.log.Trace()
	}
	if logEvent.Enabled() {
		dataJSON, _ := json.Marshal(data)
		logEvent.
			Str("event_type", string(event.Type)).
			Str("module", module).
			Bool("delivered", delivered).
			RawJSON("data", dataJSON).
			Msg("Event emitted")
	}
	return delivered
}

// Log writes a line to the logger at level and publishes it as a log event.
func (m *Manager) Log(module string, level zerolog.Level, tag, text string) {
	m.log.WithLevel(level).Str("module", module).Str("tag", tag).Msg(text)
	m.EmitTyped(module, &LogData{Level: level.String(), Text: text, Tag: tag})
}

// Status publishes a status line.
func (m *Manager) Status(module, text string) {
	m.EmitTyped(module, &StatusData{Text: text})
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.log.Error().Err(err).Str("module", module).Msg("Error event")
	m.EmitTyped(module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}
