package vulkan

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestInstanceSetAddGrowsAndSaturates(t *testing.T) {
	s := newInstanceSet(128)
	if s.Count != 128 {
		t.Fatalf("initial count = %d, want 128", s.Count)
	}

	s.Add()
	if s.Count != 144 {
		t.Errorf("count after one add = %d, want 144", s.Count)
	}

	for i := 0; i < MaxInstances; i++ {
		s.Add()
	}
	if s.Count != MaxInstances {
		t.Errorf("count saturated at %d, want %d", s.Count, MaxInstances)
	}
	s.Add()
	if s.Count != MaxInstances {
		t.Errorf("add past the cap moved the count to %d", s.Count)
	}
}

func TestInstanceSetInitialCountClamped(t *testing.T) {
	s := newInstanceSet(MaxInstances + 500)
	if s.Count != MaxInstances {
		t.Errorf("initial count = %d, want clamp to %d", s.Count, MaxInstances)
	}
}

func TestPrepareNeverRegeneratesRecords(t *testing.T) {
	s := newInstanceSet(32)
	s.prepare()
	if s.Prepared != 32 {
		t.Fatalf("prepared = %d, want 32", s.Prepared)
	}

	first := make([]byte, 32*instanceStride)
	copy(first, s.data[:len(first)])

	s.Add()
	s.prepare()
	if s.Prepared != 48 {
		t.Fatalf("prepared after growth = %d, want 48", s.Prepared)
	}

	if !bytes.Equal(first, s.data[:len(first)]) {
		t.Error("existing instance records changed when new ones were generated")
	}
}

func TestPrepareIsIdempotentAtSameCount(t *testing.T) {
	s := newInstanceSet(16)
	s.prepare()
	snapshot := make([]byte, 16*instanceStride)
	copy(snapshot, s.data[:len(snapshot)])

	s.prepare()
	if !bytes.Equal(snapshot, s.data[:len(snapshot)]) {
		t.Error("prepare at an unchanged count rewrote records")
	}
}

func TestPreparedRecordsStayInGenerationRanges(t *testing.T) {
	s := newInstanceSet(256)
	s.prepare()

	at := func(i, field int) float32 {
		off := i*instanceStride + field*4
		return math.Float32frombits(binary.LittleEndian.Uint32(s.data[off:]))
	}

	for i := 0; i < s.Count; i++ {
		tx, ty, tz := at(i, 0), at(i, 1), at(i, 2)
		if tx < -5 || tx >= 5 {
			t.Fatalf("instance %d translation x = %v out of [-5, 5)", i, tx)
		}
		if ty < -4 || ty >= 6 {
			t.Fatalf("instance %d translation y = %v out of [-4, 6)", i, ty)
		}
		if tz < -30 || tz >= 5 {
			t.Fatalf("instance %d translation z = %v out of [-30, 5)", i, tz)
		}
		for f := 3; f < 6; f++ {
			d := at(i, f)
			if d < -0.6 || d >= 0.3 {
				t.Fatalf("instance %d diffuse adjust = %v out of [-0.6, 0.3)", i, d)
			}
		}
	}
}
