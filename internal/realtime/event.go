package realtime

import "time"

const (
	EventTurnProcessed = "interview.turn_processed"
	EventCompleted     = "interview.completed"
)

// Event is what dashboards receive over the bus.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewEvent(typ, sessionID string, data map[string]any) Event {
	return Event{Type: typ, SessionID: sessionID, At: time.Now().UTC(), Data: data}
}
