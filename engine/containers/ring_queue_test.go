package containers

import "testing"

func TestRingQueueEnqueueDequeueOrder(t *testing.T) {
	rq := NewRingQueue[int](4)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if got := rq.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != want {
			t.Errorf("Dequeue = %d, want %d", got, want)
		}
	}
	if !rq.IsEmpty() {
		t.Error("queue should be empty after draining all elements")
	}
}

func TestRingQueueFull(t *testing.T) {
	rq := NewRingQueue[string](2)
	if err := rq.Enqueue("a"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := rq.Enqueue("b"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !rq.IsFull() {
		t.Error("IsFull() = false, want true")
	}
	if err := rq.Enqueue("c"); err == nil {
		t.Error("Enqueue on full queue should fail")
	}
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[int](2)
	if _, err := rq.Dequeue(); err == nil {
		t.Error("Dequeue on empty queue should fail")
	}
	if _, err := rq.Peek(); err == nil {
		t.Error("Peek on empty queue should fail")
	}
}

func TestRingQueuePeekDoesNotRemove(t *testing.T) {
	rq := NewRingQueue[int](2)
	if err := rq.Enqueue(42); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := rq.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if got != 42 {
		t.Errorf("Peek = %d, want 42", got)
	}
	if rq.Len() != 1 {
		t.Errorf("Len() = %d after Peek, want 1", rq.Len())
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 0; i < 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if _, err := rq.Dequeue(); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := rq.Enqueue(3); err != nil {
		t.Fatalf("Enqueue after wrap: %v", err)
	}
	want := []int{1, 2, 3}
	for _, w := range want {
		got, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != w {
			t.Errorf("Dequeue = %d, want %d", got, w)
		}
	}
}

func TestRingQueueDrain(t *testing.T) {
	rq := NewRingQueue[int](4)
	for i := 0; i < 4; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	var got []int
	rq.Drain(func(v int) { got = append(got, v) })
	if !rq.IsEmpty() {
		t.Error("queue should be empty after Drain")
	}
	for i, v := range got {
		if v != i {
			t.Errorf("Drain order[%d] = %d, want %d", i, v, i)
		}
	}
	if len(got) != 4 {
		t.Fatalf("Drain visited %d elements, want 4", len(got))
	}
}
