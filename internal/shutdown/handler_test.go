package shutdown

import (
	"testing"
	"time"
)

func TestShutdownRunsCleanupsInReverse(t *testing.T) {
	h := New()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		h.AddCleanup(func() { order = append(order, i) })
	}

	h.Shutdown()

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("cleanups run = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("cleanup order = %v, want %v", order, want)
			break
		}
	}

	if h.Context().Err() == nil {
		t.Error("context should be cancelled after Shutdown")
	}
}

func TestShutdownOnce(t *testing.T) {
	h := New()

	calls := 0
	h.AddCleanup(func() { calls++ })

	h.Shutdown()
	h.Shutdown()

	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}

	select {
	case <-h.Finished():
	case <-time.After(time.Second):
		t.Fatal("Finished channel not closed")
	}
}

func TestWaitTracksWork(t *testing.T) {
	h := New()
	h.Add(1)

	finished := make(chan struct{})
	go func() {
		h.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("Wait returned before work was done")
	case <-time.After(20 * time.Millisecond):
	}

	h.Done()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Done")
	}
}
