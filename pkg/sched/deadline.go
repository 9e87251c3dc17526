package sched

import (
	"math"
	"time"
)

// Deadline reports how much of the current quantum is left.
type Deadline interface {
	TimeRemaining() time.Duration
}

// Scheduler runs callbacks at some later point, each with a fresh
// Deadline. Callbacks run one at a time, never re-entrantly.
type Scheduler interface {
	ScheduleWork(cb func(Deadline))
}

// Forever is the longest representable remaining time.
const Forever = time.Duration(math.MaxInt64)

type unlimited struct{}

func (unlimited) TimeRemaining() time.Duration { return Forever }

// Unlimited returns a Deadline that never runs out.
func Unlimited() Deadline {
	return unlimited{}
}

// timeDeadline expires at a wall-clock instant.
type timeDeadline struct {
	end time.Time
	now func() time.Time
}

func (d timeDeadline) TimeRemaining() time.Duration {
	if r := d.end.Sub(d.now()); r > 0 {
		return r
	}
	return 0
}

// After returns a Deadline that expires d from now.
func After(d time.Duration) Deadline {
	return AfterClock(d, time.Now)
}

// AfterClock is After with an injectable clock.
func AfterClock(d time.Duration, now func() time.Time) Deadline {
	return timeDeadline{end: now().Add(d), now: now}
}

// UnitBudget is a Deadline that allows a fixed number of checks to
// succeed. Each TimeRemaining call spends one unit; once the budget is
// spent it reports zero. It makes interruption points deterministic.
type UnitBudget struct {
	left int
}

// Units returns a budget that lets n work units run.
func Units(n int) *UnitBudget {
	return &UnitBudget{left: n}
}

// TimeRemaining implements Deadline.
func (b *UnitBudget) TimeRemaining() time.Duration {
	if b.left <= 0 {
		return 0
	}
	b.left--
	return Forever
}

// Left returns the number of unspent units.
func (b *UnitBudget) Left() int {
	return b.left
}
