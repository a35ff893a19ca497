package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvancesTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	clk.Sleep(5 * time.Second)
	clk.Sleep(10 * time.Second)

	if got := clk.Now(); !got.Equal(start.Add(15 * time.Second)) {
		t.Errorf("Now() = %v, want start+15s", got)
	}
	if len(clk.Sleeps) != 2 || clk.Sleeps[0] != 5*time.Second || clk.Sleeps[1] != 10*time.Second {
		t.Errorf("Sleeps = %v", clk.Sleeps)
	}
}

func TestFakeOnSleepHook(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	var seen []time.Time
	clk.OnSleep = func(time.Duration) { seen = append(seen, clk.Now()) }

	clk.Sleep(time.Second)
	clk.Sleep(time.Second)

	if len(seen) != 2 || !seen[1].Equal(start.Add(2*time.Second)) {
		t.Errorf("hook observations = %v", seen)
	}
}
