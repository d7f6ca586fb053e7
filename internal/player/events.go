package player

import "time"

const (
	EventStateChanged = "player:state"
	EventBuffering    = "player:buffering"
	EventError        = "player:error"
	EventEndReached   = "player:end"
)

type EventKind string

const (
	KindBuffering  EventKind = "buffering"
	KindError      EventKind = "error"
	KindEndReached EventKind = "end"
)

// Event is the message passed from the engine goroutine to the host. Percent
// is set for buffering, Message for errors, EndReached carries nothing.
type Event struct {
	Kind      EventKind `json:"kind"`
	Percent   float64   `json:"percent,omitempty"`
	Message   string    `json:"message,omitempty"`
	SessionID string    `json:"sessionId"`
	At        string    `json:"at"`
}

func BufferingEvent(percent float64) Event {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return Event{Kind: KindBuffering, Percent: percent}
}

func ErrorEvent(message string) Event {
	return Event{Kind: KindError, Message: message}
}

func EndReachedEvent() Event {
	return Event{Kind: KindEndReached}
}

// Name maps the event onto the host event bus name.
func (e Event) Name() string {
	switch e.Kind {
	case KindBuffering:
		return EventBuffering
	case KindError:
		return EventError
	default:
		return EventEndReached
	}
}

func (e Event) stamped(sessionID string) Event {
	e.SessionID = sessionID
	e.At = time.Now().UTC().Format(time.RFC3339Nano)
	return e
}
