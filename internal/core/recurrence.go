package core

import "time"

// Frequency is how often a recurring transaction repeats.
const (
	Daily        Frequency = "daily"
	Weekly       Frequency = "weekly"
	Biweekly     Frequency = "biweekly"
	Monthly      Frequency = "monthly"
	Quarterly    Frequency = "quarterly"
	Semiannually Frequency = "semiannually"
	Yearly       Frequency = "yearly"
)

type Frequency string

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Semiannually, Yearly:
		return true
	}
	return false
}

// months returns the calendar-month step for month-based frequencies,
// zero for day-based ones.
func (f Frequency) months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Semiannually:
		return 6
	case Yearly:
		return 12
	}
	return 0
}

// days returns the day step for day-based frequencies, zero otherwise.
func (f Frequency) days() int {
	switch f {
	case Daily:
		return 1
	case Weekly:
		return 7
	case Biweekly:
		return 14
	}
	return 0
}

// occurrence returns the n-th repetition of anchor (n >= 0; n == 0 is
// the anchor itself). Month-based frequencies step from the anchor and
// clamp to the last day of the month, so a schedule anchored on the
// 31st lands on Feb 28 and back on Mar 31 rather than drifting.
func (f Frequency) occurrence(anchor time.Time, n int) time.Time {
	if d := f.days(); d > 0 {
		return anchor.AddDate(0, 0, n*d)
	}
	m := f.months()
	if m == 0 || n == 0 {
		return anchor
	}
	shifted := time.Date(anchor.Year(), anchor.Month()+time.Month(n*m), 1,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
	day := anchor.Day()
	if last := lastDayOfMonth(shifted); day > last {
		day = last
	}
	return shifted.AddDate(0, 0, day-1)
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// RecurrenceActive reports whether the recurrence still projects
// occurrences: IsRecurring is set and the end date, if any, has not
// passed.
func (tx Transaction) RecurrenceActive(today time.Time) bool {
	if !tx.IsRecurring {
		return false
	}
	return tx.RecurrenceEnd == nil || !today.After(*tx.RecurrenceEnd)
}

// NextOccurrence returns the first projected occurrence strictly after
// the given instant, or false when the recurrence is inactive or the
// end date cuts it off. Projection never materializes records.
func (tx Transaction) NextOccurrence(after time.Time) (time.Time, bool) {
	if !tx.IsRecurring || !tx.Frequency.Valid() {
		return time.Time{}, false
	}
	for n := 1; ; n++ {
		next := tx.Frequency.occurrence(tx.Date, n)
		if tx.RecurrenceEnd != nil && next.After(*tx.RecurrenceEnd) {
			return time.Time{}, false
		}
		if next.After(after) {
			return next, true
		}
	}
}

// Occurrences enumerates the projected occurrence dates strictly after
// the transaction date, up to and including min(end date, horizon).
// A non-recurring transaction yields nil.
func (tx Transaction) Occurrences(horizon time.Time) []time.Time {
	if !tx.IsRecurring || !tx.Frequency.Valid() {
		return nil
	}
	limit := horizon
	if tx.RecurrenceEnd != nil && tx.RecurrenceEnd.Before(limit) {
		limit = *tx.RecurrenceEnd
	}
	var out []time.Time
	for n := 1; ; n++ {
		next := tx.Frequency.occurrence(tx.Date, n)
		if next.After(limit) {
			return out
		}
		out = append(out, next)
	}
}
