package helper

import (
	"testing"
	"time"
)

func TestRound(t *testing.T) {
	if got := Round(1.14-1.11, 6); got != 0.03 {
		t.Fatalf("expected 0.03, got %v", got)
	}
	if got := Round(1.23456789, 6); got != 1.234568 {
		t.Fatalf("expected 1.234568, got %v", got)
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	at := time.Date(2026, 3, 10, 1, 30, 0, 0, loc) // 2026-03-09 22:30 UTC

	start, end := DayBounds(at)
	wantStart := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, start)
	}
	if !end.Equal(wantStart.Add(24 * time.Hour)) {
		t.Fatalf("unexpected end %s", end)
	}
}

func TestSumRounded(t *testing.T) {
	if got := SumRounded(6, 0.1, 0.2); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}
