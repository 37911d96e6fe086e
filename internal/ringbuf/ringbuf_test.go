package ringbuf

import (
	"math"
	"testing"
)

func TestWindow_NotFullUntilCapacity(t *testing.T) {
	w := New(3)

	w.Push(1)
	w.Push(2)
	if w.Full() {
		t.Fatal("window with 2/3 samples should not be full")
	}
	if !math.IsNaN(w.Mean()) {
		t.Errorf("expected NaN mean before full, got %v", w.Mean())
	}

	w.Push(3)
	if !w.Full() {
		t.Fatal("window should be full after 3 pushes")
	}
	if w.Mean() != 2 {
		t.Errorf("expected mean=2, got %v", w.Mean())
	}
}

func TestWindow_Eviction(t *testing.T) {
	w := New(3)
	for _, v := range []float64{1, 2, 3, 10} {
		w.Push(v)
	}
	// window is now [2 3 10]
	if got := w.Mean(); math.Abs(got-5) > 1e-12 {
		t.Errorf("expected mean=5, got %v", got)
	}
	if w.Len() != 3 {
		t.Errorf("expected len=3, got %d", w.Len())
	}
}

func TestWindow_SampleStdDev(t *testing.T) {
	w := New(4)
	for _, v := range []float64{2, 4, 4, 4} {
		w.Push(v)
	}
	// mean 3.5, squared deviations 2.25+0.25*3 = 3, /3 = 1
	if got := w.StdDev(); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected stddev=1, got %v", got)
	}
}

func TestWindow_NaNBlocksUntilEvicted(t *testing.T) {
	w := New(2)
	w.Push(math.NaN())
	w.Push(1)
	if w.Full() {
		t.Fatal("window holding NaN should not be full")
	}
	w.Push(3)
	if !w.Full() {
		t.Fatal("window should be full once NaN rolled out")
	}
	if w.Mean() != 2 {
		t.Errorf("expected mean=2, got %v", w.Mean())
	}
}

func TestWindow_ConstantHasZeroStdDev(t *testing.T) {
	w := New(20)
	for i := 0; i < 100; i++ {
		w.Push(0.1)
	}
	if got := w.StdDev(); got != 0 && got > 1e-9 {
		t.Errorf("expected ~0 stddev, got %v", got)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := New(2)
	w.Push(5)
	w.Push(6)
	w.Reset()
	if w.Len() != 0 || w.Full() {
		t.Fatalf("expected empty window after reset, len=%d", w.Len())
	}
}
