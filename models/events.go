package models

// EventKind tags a frame on a price stream.
type EventKind string

const (
	EventUpdate EventKind = "update"
	EventDone   EventKind = "done"
	EventError  EventKind = "error"
)

// UpdatePayload carries one marketplace's terminal outcome. Result is
// null when the source failed or found nothing.
type UpdatePayload struct {
	Source string        `json:"source"`
	Result *SourceResult `json:"result"`
}

// DonePayload closes a successful run.
type DonePayload struct {
	DurationMs int64 `json:"durationMs"`
}

// ErrorPayload closes an aborted or broken run.
type ErrorPayload struct {
	Message string `json:"message"`
}

// StreamEvent is one frame of a price-comparison stream: exactly one
// update per source per run, then exactly one done or error, always
// last. Exactly one payload field is set, matching Kind.
type StreamEvent struct {
	Kind   EventKind      `json:"-"`
	Update *UpdatePayload `json:"update,omitempty"`
	Done   *DonePayload   `json:"done,omitempty"`
	Error  *ErrorPayload  `json:"error,omitempty"`
}

// Payload returns the populated body for wire encoding.
func (e StreamEvent) Payload() any {
	switch e.Kind {
	case EventUpdate:
		return e.Update
	case EventDone:
		return e.Done
	default:
		return e.Error
	}
}

// UpdateEvent builds an update frame for one source.
func UpdateEvent(source string, result *SourceResult) StreamEvent {
	return StreamEvent{Kind: EventUpdate, Update: &UpdatePayload{Source: source, Result: result}}
}

// DoneEvent builds the terminal success frame.
func DoneEvent(durationMs int64) StreamEvent {
	return StreamEvent{Kind: EventDone, Done: &DonePayload{DurationMs: durationMs}}
}

// ErrorEvent builds the terminal failure frame.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Kind: EventError, Error: &ErrorPayload{Message: message}}
}
