package signal

import (
	"reflect"
	"testing"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		w.Add(p)
	}
	if got := w.Values(); !reflect.DeepEqual(got, []float64{3, 4, 5}) {
		t.Fatalf("expected [3 4 5], got %v", got)
	}
	if w.First() != 3 || w.Last() != 5 {
		t.Fatalf("unexpected bounds first=%v last=%v", w.First(), w.Last())
	}
}

func TestWindowDefaultSize(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < 25; i++ {
		w.Add(float64(i))
	}
	if w.Len() != DefaultWindowSize {
		t.Fatalf("expected %d samples, got %d", DefaultWindowSize, w.Len())
	}
	if w.First() != 5 {
		t.Fatalf("expected oldest 5, got %v", w.First())
	}
}

func TestWindowCloneIsIndependent(t *testing.T) {
	w := NewWindow(3)
	w.Add(1)
	w.Add(2)

	c := w.Clone()
	c.Add(3)
	c.Add(4)

	if !reflect.DeepEqual(w.Values(), []float64{1, 2}) {
		t.Fatalf("original mutated: %v", w.Values())
	}
	if !reflect.DeepEqual(c.Values(), []float64{2, 3, 4}) {
		t.Fatalf("unexpected clone values %v", c.Values())
	}
}
