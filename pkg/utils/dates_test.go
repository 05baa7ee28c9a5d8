package utils

import (
	"testing"
	"time"
)

func TestParseDateRangeStartIn(t *testing.T) {
	day := func(y int, m time.Month, d int) int64 {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).UnixMilli()
	}

	tests := []struct {
		in   string
		want int64
	}{
		{"Jan 08, 2026 - Jan 09, 2026", day(2026, time.January, 8)},
		{"Mar 15-22, 2026", day(2026, time.March, 15)},
		{"Mar 15 - Mar 22, 2026", day(2026, time.March, 15)},
		{"Mon, Jan 5, 2026 - Fri, Jan 9, 2026", day(2026, time.January, 5)},
		{"15 March 2026 – 20 March 2026", day(2026, time.March, 15)},
		{"September 3rd, 2025 to September 9th, 2025", day(2025, time.September, 3)},
		{"2026-03-15", day(2026, time.March, 15)},
		{"03/15/2026 - 03/22/2026", day(2026, time.March, 15)},
		{"TBD", 0},
		{"", 0},
		{"Feb 30, 2026", 0},
		{"Mar 15", 0},
		{"Smarch 15, 2026", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDateRangeStartIn(tt.in, time.UTC); got != tt.want {
				t.Errorf("ParseDateRangeStartIn(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDateRangeStartUsesLocalMidnight(t *testing.T) {
	want := time.Date(2026, time.January, 8, 0, 0, 0, 0, time.Local).UnixMilli()
	if got := ParseDateRangeStart("Jan 08, 2026 - Jan 09, 2026"); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestRangeYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"Jan 08, 2026 - Jan 09, 2026", 2026},
		{"Dec 30, 2025 - Jan 03, 2026", 2025},
		{"sometime in 2027", 2027},
		{"TBD", 0},
	}
	for _, tt := range tests {
		if got := RangeYear(tt.in); got != tt.want {
			t.Errorf("RangeYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
