package terminal

// EventType names an event emitted by the session manager
type EventType string

const (
	EventOutput EventType = "terminal-output"
	EventError  EventType = "terminal-error"
	EventExit   EventType = "terminal-exit"
)

// Event is pushed to subscribers. Data is set for output, Error and
// Suggestion for errors; SessionID is empty for create failures.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"id"`
	Data       string    `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// EventSink receives session events. Emit is called from pump goroutines
// and must not block for long.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

// Emit calls f(e)
func (f EventSinkFunc) Emit(e Event) { f(e) }

// Discard drops every event
var Discard EventSink = EventSinkFunc(func(Event) {})

func outputEvent(id, data string) Event {
	return Event{Type: EventOutput, SessionID: id, Data: data}
}

func errorEvent(id string, err error) Event {
	return Event{Type: EventError, SessionID: id, Error: err.Error(), Suggestion: Suggestion(err)}
}

func exitEvent(id string) Event {
	return Event{Type: EventExit, SessionID: id}
}
