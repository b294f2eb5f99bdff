package calculator

import (
	"testing"
	"time"
)

var testHalvings = []time.Time{
	time.Date(2012, 11, 28, 0, 0, 0, 0, time.UTC),
	time.Date(2016, 7, 9, 0, 0, 0, 0, time.UTC),
	time.Date(2020, 5, 11, 0, 0, 0, 0, time.UTC),
	time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
}

func TestCyclePositionAt_ProjectedTopDay(t *testing.T) {
	today := testHalvings[3].AddDate(0, 0, 520)
	pos, err := CyclePositionAt(today, testHalvings, 520)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.DaysUntilProjectedTop != 0 {
		t.Errorf("on the projected top day the countdown must read 0, got %d", pos.DaysUntilProjectedTop)
	}
	if pos.DaysSinceHalving != 520 {
		t.Errorf("days since halving %d, want 520", pos.DaysSinceHalving)
	}
	assertClose(t, pos.PercentComplete, 1.0, 1e-12)
}

func TestCyclePositionAt_MidCycle(t *testing.T) {
	today := time.Date(2021, 5, 11, 0, 0, 0, 0, time.UTC)
	pos, err := CyclePositionAt(today, testHalvings, 520)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.LastHalving.Equal(testHalvings[2]) {
		t.Errorf("last halving %s, want %s", pos.LastHalving, testHalvings[2])
	}
	if !pos.NextHalving.Equal(testHalvings[3]) {
		t.Errorf("next halving %s, want %s", pos.NextHalving, testHalvings[3])
	}
	if pos.NextHalvingEstimated {
		t.Error("next halving is tabulated, not estimated")
	}
	if pos.DaysSinceHalving != 365 {
		t.Errorf("days since halving %d, want 365", pos.DaysSinceHalving)
	}
}

func TestCyclePositionAt_EstimatesBeyondTable(t *testing.T) {
	today := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pos, err := CyclePositionAt(today, testHalvings, 520)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.NextHalvingEstimated {
		t.Error("next halving past the table must be flagged as estimated")
	}
	want := testHalvings[3].AddDate(4, 0, 0)
	if !pos.NextHalving.Equal(want) {
		t.Errorf("estimated next halving %s, want %s", pos.NextHalving, want)
	}
}

func TestCyclePositionAt_BeforeFirstHalving(t *testing.T) {
	today := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := CyclePositionAt(today, testHalvings, 520); err == nil {
		t.Error("expected error for a date before the first tabulated halving")
	}
}

func TestCycleCurves_NormalizesEachCycle(t *testing.T) {
	// Price data spans the last two halvings.
	start := testHalvings[2]
	days := daysBetween(testHalvings[2], testHalvings[3]) + 10
	prices := make([]float64, days)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	curves := CycleCurves(dailySeries("BTC-USD", start, prices), testHalvings)
	if len(curves) != 2 {
		t.Fatalf("expected curves for the two cycles with data, got %d", len(curves))
	}
	for _, c := range curves {
		assertClose(t, c.Points[0].Value, 100, 1e-9)
		if c.Points[0].DayOffset != 0 {
			t.Errorf("curve %s starts at offset %d, want 0", c.Label, c.Points[0].DayOffset)
		}
	}
	if curves[0].Current || !curves[1].Current {
		t.Error("only the newest cycle with data is current")
	}
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		in     time.Time
		months int
		want   time.Time
	}{
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), -18, time.Date(2022, 10, 20, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), 18, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC), 3, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got := AddMonthsClamped(c.in, c.months)
		if !got.Equal(c.want) {
			t.Errorf("%s %+d months: got %s, want %s",
				c.in.Format("2006-01-02"), c.months,
				got.Format("2006-01-02"), c.want.Format("2006-01-02"))
		}
	}
}
