// Package clock abstracts wall-clock time so deadline and polling logic can
// be driven by a fake in tests. No library in use here provides this; the
// interface is two methods.
package clock

import "time"

// Clock supplies the time operations the polling loops need.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Real is a Clock backed by the system clock.
type Real struct{}

func (Real) Now() time.Time        { return time.Now() }
func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a Clock whose time only advances when Sleep is called. Each Sleep
// advances the fake time by the requested duration and invokes OnSleep, which
// tests use to script remote-state changes between poll iterations.
type Fake struct {
	now     time.Time
	Sleeps  []time.Duration
	OnSleep func(d time.Duration)
}

// NewFake returns a Fake starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time { return f.now }

func (f *Fake) Sleep(d time.Duration) {
	f.now = f.now.Add(d)
	f.Sleeps = append(f.Sleeps, d)
	if f.OnSleep != nil {
		f.OnSleep(d)
	}
}

// Advance moves the fake time forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
