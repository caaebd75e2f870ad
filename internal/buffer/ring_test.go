package buffer

import (
	"errors"
	"testing"
)

func TestRingEviction(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushes   int
	}{
		{"Below capacity", 3, 2},
		{"Exactly full", 2, 2},
		{"Pipeline default", 2, 10},
		{"Larger ring wraps several times", 5, 23},
		{"Zero capacity is clamped", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New[int](tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				r.Push(i)
				if r.Len() > r.Cap() {
					t.Fatalf("Len() = %d exceeds Cap() = %d after %d pushes", r.Len(), r.Cap(), i+1)
				}
			}

			wantLen := tt.pushes
			if wantLen > r.Cap() {
				wantLen = r.Cap()
			}
			if r.Len() != wantLen {
				t.Fatalf("Len() = %d, want %d", r.Len(), wantLen)
			}

			// Retained items are the last Len() pushes, oldest first.
			items := r.Items()
			for i, got := range items {
				want := tt.pushes - wantLen + i
				if got != want {
					t.Errorf("Items()[%d] = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRingPushReportsEvicted(t *testing.T) {
	r := New[string](2)
	if _, ok := r.Push("a"); ok {
		t.Fatal("unexpected eviction on first push")
	}
	if _, ok := r.Push("b"); ok {
		t.Fatal("unexpected eviction on second push")
	}
	evicted, ok := r.Push("c")
	if !ok || evicted != "a" {
		t.Errorf("Push(c) evicted (%q, %v), want (\"a\", true)", evicted, ok)
	}
}

func TestRingLastAndSecondLast(t *testing.T) {
	r := New[int](2)

	if _, err := r.Last(); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("Last() on empty ring: err = %v, want ErrEmptyBuffer", err)
	}

	r.Push(1)
	if _, err := r.SecondLast(); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("SecondLast() with one frame: err = %v, want ErrEmptyBuffer", err)
	}

	r.Push(2)
	r.Push(3)
	last, err := r.Last()
	if err != nil || last != 3 {
		t.Errorf("Last() = (%d, %v), want (3, nil)", last, err)
	}
	prev, err := r.SecondLast()
	if err != nil || prev != 2 {
		t.Errorf("SecondLast() = (%d, %v), want (2, nil)", prev, err)
	}
}

func TestRingLastIsMutable(t *testing.T) {
	type frame struct{ n int }
	r := New[*frame](2)
	r.Push(&frame{n: 1})

	last, _ := r.Last()
	last.n = 42

	again, _ := r.Last()
	if again.n != 42 {
		t.Errorf("mutation through Last() not visible, got %d", again.n)
	}
}
