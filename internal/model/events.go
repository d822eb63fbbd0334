package model

// EventKind enumerates the model's change notifications.
type EventKind int

const (
	NodeStructureChanged EventKind = iota
	SelectionChanged
	PreSelectionChanged
	PersistenceSynced
)

func (k EventKind) String() string {
	switch k {
	case NodeStructureChanged:
		return "node_structure_changed"
	case SelectionChanged:
		return "selection_changed"
	case PreSelectionChanged:
		return "pre_selection_changed"
	case PersistenceSynced:
		return "persistence_synced"
	}
	return "unknown"
}

// Event is delivered to subscribers after the mutation that produced it has
// completed and the model lock has been released.
type Event struct {
	Kind   EventKind
	NodeID string
	PrevID string
}

// Handler receives events for one kind. Handlers run on the mutating
// goroutine, after the edit; they may call back into the model.
type Handler func(Event)

// Subscribe registers a handler for one event kind.
func (m *Model) Subscribe(kind EventKind, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[kind] = append(m.subs[kind], h)
}

// publishLocked queues an event for delivery after the current edit.
func (m *Model) publishLocked(kind EventKind, nodeID, prevID string) {
	m.pending = append(m.pending, Event{Kind: kind, NodeID: nodeID, PrevID: prevID})
}

// flush delivers queued events outside the lock. Deferred first in every
// mutating method so it runs after the lock is released.
func (m *Model) flush() {
	m.mu.Lock()
	events := m.pending
	m.pending = nil
	handlers := make(map[EventKind][]Handler, len(m.subs))
	for kind, hs := range m.subs {
		handlers[kind] = hs
	}
	m.mu.Unlock()

	for _, e := range events {
		for _, h := range handlers[e.Kind] {
			h(e)
		}
	}
}
