package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidDays_SameDay(t *testing.T) {
	// 2025-03-10 is a Monday.
	days := ValidDays(date(2025, 3, 10), date(2025, 3, 10))

	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if !days.Contains(Monday) {
		t.Errorf("expected Monday in %v", days.Sorted())
	}
}

func TestValidDays_FullWeek(t *testing.T) {
	days := ValidDays(date(2025, 3, 3), date(2025, 3, 10))

	if len(days) != 7 {
		t.Fatalf("expected all 7 weekdays, got %d: %v", len(days), days.Sorted())
	}
}

func TestValidDays_PartialRange(t *testing.T) {
	// Wed 2025-03-05 through Fri 2025-03-07.
	days := ValidDays(date(2025, 3, 5), date(2025, 3, 7))

	want := []Weekday{Wednesday, Thursday, Friday}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d: %v", len(want), len(days), days.Sorted())
	}
	for _, d := range want {
		if !days.Contains(d) {
			t.Errorf("expected %s in result", d.Name())
		}
	}
}

func TestValidDays_InvertedRange(t *testing.T) {
	days := ValidDays(date(2025, 3, 10), date(2025, 3, 3))

	if len(days) != 0 {
		t.Fatalf("inverted range should yield empty set, got %v", days.Sorted())
	}
}

func TestValidDays_IgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)

	// As instants start is after end, but both are the same calendar
	// day, so normalization makes the range valid.
	days := ValidDays(start, end)
	if len(days) != 1 || !days.Contains(Monday) {
		t.Fatalf("expected {Monday}, got %v", days.Sorted())
	}
}

func TestValidDays_Idempotent(t *testing.T) {
	start, end := date(2025, 3, 4), date(2025, 3, 6)

	first := ValidDays(start, end)
	second := ValidDays(start, end)

	if len(first) != len(second) {
		t.Fatalf("repeat call differed: %v vs %v", first.Sorted(), second.Sorted())
	}
	for d := range first {
		if !second.Contains(d) {
			t.Errorf("repeat call missing %s", d.Name())
		}
	}
}

func TestValidDays_CrossesDSTBoundary(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// US spring-forward was 2025-03-09; the 23-hour day must still be
	// counted once and only once.
	start := time.Date(2025, 3, 8, 12, 0, 0, 0, loc)
	end := time.Date(2025, 3, 11, 12, 0, 0, 0, loc)

	days := ValidDays(start, end)
	want := []Weekday{Saturday, Sunday, Monday, Tuesday}
	if len(days) != len(want) {
		t.Fatalf("expected %d days across DST, got %v", len(want), days.Sorted())
	}
	for _, d := range want {
		if !days.Contains(d) {
			t.Errorf("expected %s in result", d.Name())
		}
	}
}

func TestReconcile_DropsInvalidSelections(t *testing.T) {
	selected := NewWeekdaySet(Monday, Friday)
	valid := NewWeekdaySet(Monday, Tuesday)

	got := Reconcile(selected, valid)

	if len(got) != 1 || !got.Contains(Monday) {
		t.Fatalf("expected {Monday}, got %v", got.Sorted())
	}
	// Input set is untouched.
	if !selected.Contains(Friday) {
		t.Error("Reconcile mutated its input")
	}
}

func TestReconcile_EmptyValidClearsSelection(t *testing.T) {
	got := Reconcile(NewWeekdaySet(Wednesday), NewWeekdaySet())
	if len(got) != 0 {
		t.Fatalf("expected empty selection, got %v", got.Sorted())
	}
}

func TestSorted_Ascending(t *testing.T) {
	days := NewWeekdaySet(Saturday, Sunday, Wednesday).Sorted()

	want := []Weekday{Sunday, Wednesday, Saturday}
	for i, d := range want {
		if days[i] != d {
			t.Fatalf("expected %v, got %v", want, days)
		}
	}
}

func TestDisplayOrder_MondayFirst(t *testing.T) {
	days := DisplayOrder(NewWeekdaySet(Sunday, Monday, Saturday))

	want := []Weekday{Monday, Saturday, Sunday}
	for i, d := range want {
		if days[i] != d {
			t.Fatalf("expected %v, got %v", want, days)
		}
	}
}

func TestNewWeekdaySet_RejectsOutOfRange(t *testing.T) {
	set := NewWeekdaySet(Monday, Weekday(7), Weekday(-1))
	if len(set) != 1 {
		t.Fatalf("expected out-of-range indices dropped, got %v", set.Sorted())
	}
}

func TestWeekdayName(t *testing.T) {
	if Sunday.Name() != "Sunday" || Saturday.Name() != "Saturday" {
		t.Error("unexpected day names")
	}
	if Weekday(9).Name() != "" {
		t.Error("out-of-range weekday should have empty name")
	}
}
