package systems

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewJobSystemValidation(t *testing.T) {
	if _, err := NewJobSystem(0, 4); err != ErrNoWorkers {
		t.Errorf("want ErrNoWorkers, got %v", err)
	}
	if _, err := NewJobSystem(2, -1); err != ErrNegativeChannelSize {
		t.Errorf("want ErrNegativeChannelSize, got %v", err)
	}
}

func TestSubmitTrackedRunsWorkThenCallback(t *testing.T) {
	js, err := NewJobSystem(2, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	var order []string
	done := make(chan struct{})
	f := js.SubmitTracked(func() error {
		order = append(order, "work")
		return nil
	}, func() {
		order = append(order, "complete")
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never completed")
	}
	if err := f.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !f.IsReady() {
		t.Error("future not ready after Wait")
	}
	if len(order) != 2 || order[0] != "work" || order[1] != "complete" {
		t.Errorf("order = %v, want [work complete]", order)
	}
}

func TestSubmitTrackedPropagatesError(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	wantErr := fmt.Errorf("boom")
	completed := int32(0)
	f := js.SubmitTracked(func() error {
		return wantErr
	}, func() {
		atomic.AddInt32(&completed, 1)
	})

	if got := f.Wait(); got != wantErr {
		t.Errorf("Wait = %v, want %v", got, wantErr)
	}
	if atomic.LoadInt32(&completed) != 0 {
		t.Error("onComplete ran for a failed job")
	}
}

func TestFutureWaitIsIdempotent(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	f := js.SubmitTracked(func() error { return nil }, nil)
	for i := 0; i < 3; i++ {
		if err := f.Wait(); err != nil {
			t.Fatalf("Wait #%d: %v", i, err)
		}
	}
}

func TestNewResolvedFuture(t *testing.T) {
	f := NewResolvedFuture()
	if !f.IsReady() {
		t.Error("resolved future not ready")
	}
	if err := f.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	js, err := NewJobSystem(4, 64)
	if err != nil {
		t.Fatal(err)
	}

	var ran int32
	for i := 0; i < 32; i++ {
		js.Submit(JobTask{OnStart: func() error {
			atomic.AddInt32(&ran, 1)
			return nil
		}})
	}
	js.Shutdown()
	if got := atomic.LoadInt32(&ran); got != 32 {
		t.Errorf("ran = %d, want 32", got)
	}
}
