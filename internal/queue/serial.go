package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned when tasks are submitted after Close.
var ErrClosed = errors.New("queue is closed")

// Serial executes submitted tasks one at a time, strictly in submission
// order. The application runs two instances: one serializing item and voice
// persistence, one serializing synthesis and playback, so a slow network
// call never blocks item CRUD. There are no priorities and no reordering.
type Serial struct {
	name  string
	tasks chan func()

	mu     sync.RWMutex
	closed bool

	wg sync.WaitGroup
}

// NewSerial creates a serial executor with the given buffer capacity and
// starts its worker.
func NewSerial(name string, buffer int) *Serial {
	if buffer <= 0 {
		buffer = 64
	}
	s := &Serial{
		name:  name,
		tasks: make(chan func(), buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Name identifies the executor in logs.
func (s *Serial) Name() string { return s.name }

func (s *Serial) run() {
	defer s.wg.Done()
	for task := range s.tasks {
		task()
	}
}

// Submit schedules a task. When the buffer is full, Submit blocks until the
// worker catches up; backpressure instead of dropping keeps the FIFO
// guarantee intact.
func (s *Serial) Submit(task func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	s.tasks <- task
	return nil
}

// SubmitWait schedules a task and blocks until it has run. It must not be
// called from inside another task on the same executor.
func (s *Serial) SubmitWait(task func()) error {
	done := make(chan struct{})
	if err := s.Submit(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	<-done
	return nil
}

// Close stops accepting new tasks, runs everything already queued, and
// waits for the worker to exit. Closing twice is a no-op.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.tasks)
	s.mu.Unlock()

	s.wg.Wait()
}
