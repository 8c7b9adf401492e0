package calendar

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// MemoryClient is an in-process calendar. It backs local development
// (CALENDAR_BACKEND=memory) and tests.
type MemoryClient struct {
	mu     sync.Mutex
	seq    int
	events []Event

	// Err, when set, fails every call.
	Err error
	// BeforeCreate runs before an event is stored, outside the lock.
	BeforeCreate func()

	lists int
}

func NewMemoryClient(events ...Event) *MemoryClient {
	m := &MemoryClient{}
	for _, e := range events {
		m.add(e)
	}
	return m
}

// Add stores e as an existing event and returns its id.
func (m *MemoryClient) Add(e Event) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(e).ID
}

func (m *MemoryClient) add(e Event) Event {
	m.seq++
	if e.ID == "" {
		e.ID = "evt-" + strconv.Itoa(m.seq)
	}
	if e.Status == "" {
		e.Status = "confirmed"
	}
	e.Properties = copyProps(e.Properties)
	m.events = append(m.events, e)
	return e
}

// ListCalls reports how many ListEvents calls were served.
func (m *MemoryClient) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func (m *MemoryClient) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryClient) ListEvents(ctx context.Context, w Window) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.Err != nil {
		return nil, m.Err
	}

	var out []Event
	for _, e := range m.events {
		if e.Window.Overlaps(w) {
			e.Properties = copyProps(e.Properties)
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Window.Start.Before(out[j].Window.Start) })
	return out, nil
}

func (m *MemoryClient) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Event{}, m.Err
	}
	if e.ID != "" {
		for _, existing := range m.events {
			if existing.ID == e.ID {
				return Event{}, fmt.Errorf("%w: %s", ErrEventExists, e.ID)
			}
		}
	}
	return m.add(Event{
		ID:          e.ID,
		Summary:     e.Summary,
		Description: e.Description,
		Window:      e.Window,
		ColorID:     e.ColorID,
		Properties:  e.Properties,
	}), nil
}

func (m *MemoryClient) UpdateEvent(ctx context.Context, id string, u EventUpdate) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Event{}, m.Err
	}
	for i := range m.events {
		if m.events[i].ID != id {
			continue
		}
		if u.Summary != "" {
			m.events[i].Summary = u.Summary
		}
		if u.ColorID != "" {
			m.events[i].ColorID = u.ColorID
		}
		e := m.events[i]
		e.Properties = copyProps(e.Properties)
		return e, nil
	}
	return Event{}, ErrEventNotFound
}

func copyProps(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
