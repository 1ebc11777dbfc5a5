package sim

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeObstacleToggled
	EventTypeObstaclesCleared
	EventTypePathRequested
	EventTypeSearchFound
	EventTypeSearchUnreachable
	EventTypeWaypointReached
	EventTypePathCompleted
	EventTypeCommandRejected
	EventTypeModeChanged
)

// EventVersion is bumped when payload shapes change.
const EventVersion uint8 = 1

// Event is one entry of the event log.
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Name      string          `json:"name"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	TickNum   uint64          `json:"tickNum"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeObstacleToggled:
		return "obstacle_toggled"
	case EventTypeObstaclesCleared:
		return "obstacles_cleared"
	case EventTypePathRequested:
		return "path_requested"
	case EventTypeSearchFound:
		return "search_found"
	case EventTypeSearchUnreachable:
		return "search_unreachable"
	case EventTypeWaypointReached:
		return "waypoint_reached"
	case EventTypePathCompleted:
		return "path_completed"
	case EventTypeCommandRejected:
		return "command_rejected"
	case EventTypeModeChanged:
		return "mode_changed"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// CellPayload identifies a grid cell.
type CellPayload struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Blocked bool `json:"blocked"`
}

// PathRequestPayload records the endpoints of a new search.
type PathRequestPayload struct {
	Source int    `json:"source"`
	Goal   int    `json:"goal"`
	Mode   string `json:"mode"`
}

// SearchPayload records a finished search.
type SearchPayload struct {
	Source     int     `json:"source"`
	Goal       int     `json:"goal"`
	Steps      int     `json:"steps"`
	Visited    int     `json:"visited"`
	PathLength int     `json:"pathLength"`
	Cost       float64 `json:"cost"`
}

// WaypointPayload records agent progress.
type WaypointPayload struct {
	Index int `json:"index"`
	Node  int `json:"node"`
}

// RejectPayload records a dropped command.
type RejectPayload struct {
	Command string `json:"command"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Reason  string `json:"reason"`
}

// NewEvent creates an event with the payload encoded as JSON.
func NewEvent(eventType EventType, tickNum uint64, payload interface{}) Event {
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Payload:   raw,
	}
}
