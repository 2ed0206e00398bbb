package response_models

type StreamEventType string

const (
	EventConnected StreamEventType = "connected"
	EventDelta     StreamEventType = "delta"
	EventComplete  StreamEventType = "complete"
	EventError     StreamEventType = "error"
)

// StreamEvent is the JSON carried by one SSE "data:" line.
type StreamEvent struct {
	Type       StreamEventType `json:"type"`
	Content    *string         `json:"content,omitempty"`
	IsComplete *bool           `json:"isComplete,omitempty"`
}

func ConnectedEvent() StreamEvent {
	return StreamEvent{Type: EventConnected}
}

func DeltaEvent(token string) StreamEvent {
	content := token + " "
	done := false
	return StreamEvent{Type: EventDelta, Content: &content, IsComplete: &done}
}

func CompleteEvent() StreamEvent {
	done := true
	return StreamEvent{Type: EventComplete, IsComplete: &done}
}

func ErrorEvent(message string) StreamEvent {
	done := true
	return StreamEvent{Type: EventError, Content: &message, IsComplete: &done}
}

// Terminal reports whether the event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Text returns the event content or "" when it has none.
func (e StreamEvent) Text() string {
	if e.Content == nil {
		return ""
	}
	return *e.Content
}
