// Package signals implements the process-wide "setting changed" notification.
// Receivers are invoked synchronously, in connection order, every time a host
// setting is assigned or cleared.
package signals

import "sync"

// Change describes a single host setting update. A nil Value means the
// setting was removed.
type Change struct {
	Setting string
	Value   any
}

// Receiver handles a Change.
type Receiver func(Change)

type connection struct {
	id       uint64
	receiver Receiver
}

// Signal fans changes out to connected receivers.
type Signal struct {
	mu          sync.RWMutex
	nextID      uint64
	connections []connection
}

// New creates a Signal with no receivers.
func New() *Signal {
	return &Signal{}
}

// Connect registers r and returns a function that disconnects it. Calling the
// returned function more than once is a no-op.
func (s *Signal) Connect(r Receiver) (disconnect func()) {
	if r == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.connections = append(s.connections, connection{id: id, receiver: r})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.disconnect(id) })
	}
}

// Send delivers c to every receiver connected at the time of the call.
// Receivers run outside the signal lock, so they may connect or disconnect.
func (s *Signal) Send(c Change) {
	s.mu.RLock()
	receivers := make([]Receiver, 0, len(s.connections))
	for _, conn := range s.connections {
		receivers = append(receivers, conn.receiver)
	}
	s.mu.RUnlock()

	for _, r := range receivers {
		r(c)
	}
}

// Receivers returns the number of connected receivers.
func (s *Signal) Receivers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Signal) disconnect(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, conn := range s.connections {
		if conn.id == id {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			return
		}
	}
}
