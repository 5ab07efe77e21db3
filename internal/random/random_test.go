package random

import (
	"math"
	"testing"
)

func TestNewSourceDeterministic(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	for i := 0; i < 20; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestBetweenInclusive(t *testing.T) {
	src := NewSource(7)
	seenLo, seenHi := false, false
	for i := 0; i < 2000; i++ {
		v := Between(src, 3, 5)
		if v < 3 || v > 5 {
			t.Fatalf("value %d out of [3,5]", v)
		}
		seenLo = seenLo || v == 3
		seenHi = seenHi || v == 5
	}
	if !seenLo || !seenHi {
		t.Errorf("expected both bounds to be reachable (lo=%v hi=%v)", seenLo, seenHi)
	}
}

func TestBetweenSwapsReversedBounds(t *testing.T) {
	seq := &Sequence{Values: []int{0}}
	if v := Between(seq, 10, 1); v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
}

func TestRollRange(t *testing.T) {
	seq := &Sequence{Values: []int{0, 99, 44}}
	want := []int{1, 100, 45}
	for i, w := range want {
		if got := Roll(seq); got != w {
			t.Errorf("roll %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestNewSeed(t *testing.T) {
	if _, err := NewSeed(); err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
}

func TestBetweenFullIntRange(t *testing.T) {
	if Fits(math.MinInt, math.MaxInt) {
		t.Fatal("full int range should not fit")
	}
	if !Fits(-10, 10) || !Fits(0, math.MaxInt-1) {
		t.Fatal("narrow ranges should fit")
	}
	seq := &Sequence{Values: []int{3}}
	if v := Between(seq, math.MinInt, math.MaxInt); v != math.MinInt+3 {
		t.Errorf("expected %d, got %d", math.MinInt+3, v)
	}
	src := NewSource(11)
	for i := 0; i < 100; i++ {
		if v := Between(src, -5000000000000000000, 5000000000000000000); v < -5000000000000000000 {
			t.Fatalf("value %d below lower bound", v)
		}
	}
}
