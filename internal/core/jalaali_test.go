package core

import (
	"testing"
	"time"
)

func TestToJalaali(t *testing.T) {
	cases := []struct {
		g    time.Time
		want string
	}{
		{time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), "1403/01/01"},
		{time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC), "1402/12/29"},
		{time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), "1403/12/30"},
		{time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), "1404/01/01"},
		{time.Date(2023, 3, 21, 0, 0, 0, 0, time.UTC), "1402/01/01"},
		{time.Date(2024, 9, 22, 0, 0, 0, 0, time.UTC), "1403/07/01"},
		{time.Date(2024, 9, 21, 0, 0, 0, 0, time.UTC), "1403/06/31"},
	}
	for _, tc := range cases {
		if got := FormatJalaali(tc.g); got != tc.want {
			t.Errorf("FormatJalaali(%s) = %s, want %s", tc.g.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestJalaaliRoundTrip(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3*366; i++ {
		g := start.AddDate(0, 0, i)
		j := ToJalaali(g)
		back := FromJalaali(j.Year, j.Month, j.Day, time.UTC)
		if !back.Equal(g) {
			t.Fatalf("round trip %s -> %s -> %s", g.Format("2006-01-02"), j, back.Format("2006-01-02"))
		}
	}
}

func TestJalaaliLeap(t *testing.T) {
	if !IsJalaaliLeap(1403) {
		t.Errorf("1403 should be leap")
	}
	if IsJalaaliLeap(1402) {
		t.Errorf("1402 should not be leap")
	}
	if got := JalaaliMonthLength(1402, 12); got != 29 {
		t.Errorf("Esfand 1402 length = %d, want 29", got)
	}
	if got := JalaaliMonthLength(1403, 12); got != 30 {
		t.Errorf("Esfand 1403 length = %d, want 30", got)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1403/12/30", "2025-03-20", true},
		{"۱۴۰۳/۰۱/۰۱", "2024-03-20", true},
		{"2025-02-28", "2025-02-28", true},
		{"2025-02-30", "", false},
		{"1402/12/30", "", false},
		{"1403/13/01", "", false},
		{"yesterday", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in, time.UTC)
		if tc.ok {
			if err != nil || got.Format("2006-01-02") != tc.want {
				t.Fatalf("ParseDate(%q) = %v (err=%v), want %s", tc.in, got, err, tc.want)
			}
		} else if err == nil {
			t.Fatalf("ParseDate(%q) expected error", tc.in)
		}
	}
}
