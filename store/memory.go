package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Listeners run on one dispatch goroutine in write order,
// never on the writer's goroutine.
type Memory struct {
	mu     sync.Mutex
	values Values

	listeners map[int]ChangeListener
	nextID    int

	pending []Change
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewMemory() *Memory {
	m := &Memory{
		values:    Values{},
		listeners: map[int]ChangeListener{},
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go m.dispatch()
	return m
}

func (m *Memory) Get(_ context.Context, keys ...Key) (Values, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Values, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = clone(v)
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, values Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for k, v := range values {
		old, had := m.values[k]
		m.values[k] = clone(v)
		if had && sameJSON(old, v) {
			continue
		}
		m.pending = append(m.pending, Change{Key: k, Old: clone(old), New: clone(v)})
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

func (m *Memory) OnChange(_ context.Context, listener ChangeListener) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) dispatch() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			m.mu.Lock()
			if len(m.pending) == 0 {
				m.mu.Unlock()
				break
			}
			c := m.pending[0]
			m.pending = m.pending[1:]
			listeners := make([]ChangeListener, 0, len(m.listeners))
			for _, l := range m.listeners {
				listeners = append(listeners, l)
			}
			m.mu.Unlock()

			for _, l := range listeners {
				l(c)
			}
		}
	}
}
