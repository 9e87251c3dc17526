package sched

import "sync"

// Manual is a Scheduler that only runs callbacks when told to. Tests use
// it to step an engine one quantum at a time.
type Manual struct {
	mu    sync.Mutex
	queue []func(Deadline)
}

var _ Scheduler = (*Manual)(nil)

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

// ScheduleWork implements Scheduler.
func (m *Manual) ScheduleWork(cb func(Deadline)) {
	m.mu.Lock()
	m.queue = append(m.queue, cb)
	m.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunNext runs the oldest queued callback with d. It returns false if the
// queue was empty.
func (m *Manual) RunNext(d Deadline) bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	cb := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.mu.Unlock()

	cb(d)
	return true
}

// Drain runs callbacks until the queue is empty, giving each a Deadline
// from next, and returns how many ran. It stops after limit callbacks when
// limit is positive.
func (m *Manual) Drain(next func() Deadline, limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !m.RunNext(next()) {
			break
		}
		n++
	}
	return n
}
