package queue

import (
	"sync"
	"testing"
	"time"
)

func TestSerial_FIFOOrder(t *testing.T) {
	q := NewSerial("test", 16)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 50; i++ {
		i := i
		if err := q.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	// Flush by waiting on a final task.
	if err := q.SubmitWait(func() {}); err != nil {
		t.Fatalf("SubmitWait failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 50 {
		t.Fatalf("expected 50 tasks to run, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran out of order (got %d)", i, v)
		}
	}
}

func TestSerial_SingleWorker(t *testing.T) {
	q := NewSerial("test", 16)
	defer q.Close()

	var mu sync.Mutex
	running := 0
	peak := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if err := q.Submit(func() {
			defer wg.Done()
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("expected at most one task running, saw %d", peak)
	}
}

func TestSerial_SubmitWaitBlocksUntilDone(t *testing.T) {
	q := NewSerial("test", 4)
	defer q.Close()

	ran := false
	if err := q.SubmitWait(func() { ran = true }); err != nil {
		t.Fatalf("SubmitWait failed: %v", err)
	}
	if !ran {
		t.Error("SubmitWait returned before the task ran")
	}
}

func TestSerial_CloseDrainsQueued(t *testing.T) {
	q := NewSerial("test", 16)

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		if err := q.Submit(func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 10 {
		t.Errorf("Close returned before queued tasks finished: %d of 10 ran", count)
	}
}

func TestSerial_SubmitAfterClose(t *testing.T) {
	q := NewSerial("test", 4)
	q.Close()

	if err := q.Submit(func() {}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.SubmitWait(func() {}); err != ErrClosed {
		t.Errorf("expected ErrClosed from SubmitWait, got %v", err)
	}

	// Closing again must not panic.
	q.Close()
}
