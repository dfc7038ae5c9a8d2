package project

// EventType identifies project events.
type EventType int

const (
	// EventChanged carries the new Snapshot after any mutation.
	EventChanged EventType = iota
	// EventSelectionChanged carries the new Snapshot after Select.
	EventSelectionChanged
	// EventNotice carries a Notice for refused operations.
	EventNotice
	// EventSaved carries the path the project was written to.
	EventSaved
)

// EventListener is called when an event occurs.
type EventListener func(data any)

// Notice is a non-fatal message for the user.
type Notice struct {
	Message string
	Err     error
}

// On registers a listener for the specified event type.
func (p *Project) On(event EventType, listener EventListener) {
	p.lmu.Lock()
	defer p.lmu.Unlock()
	p.listeners[event] = append(p.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. It must not
// be called with p.mu held.
func (p *Project) Emit(event EventType, data any) {
	p.lmu.RLock()
	listeners := p.listeners[event]
	p.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
