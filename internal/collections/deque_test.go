package collections

import "testing"

func TestDequeEvictsFromFront(t *testing.T) {
	d := NewDeque[int](3)
	for i := 1; i <= 5; i++ {
		d.PushBack(i)
	}
	if got := d.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := d.Slice(); len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("Slice() = %v, want [3 4 5]", got)
	}
}

func TestDequeNeverExceedsCapacity(t *testing.T) {
	d := NewDeque[string](1)
	ops := []string{"a", "b", "c", "d"}
	for _, v := range ops {
		d.PushBack(v)
		if d.Len() > d.Capacity() {
			t.Fatalf("size %d exceeds capacity %d after pushing %q", d.Len(), d.Capacity(), v)
		}
	}
}

func TestDequeZeroCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero capacity")
		}
	}()
	NewDeque[int](0)
}

func TestDequeAt(t *testing.T) {
	d := NewDeque[int](4)
	d.PushBack(10)
	d.PushBack(20)
	if v, ok := d.At(1); !ok || v != 20 {
		t.Fatalf("At(1) = %v, %v; want 20, true", v, ok)
	}
	if _, ok := d.At(5); ok {
		t.Fatal("At(5) should not be found")
	}
}
