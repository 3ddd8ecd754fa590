package calendar

import (
	"time"
)

// Kind names a calendar window.
type Kind string

// Supported window kinds. CurrentWeek is the default.
const (
	CurrentWeek    Kind = "currentWeek"
	PriorWeek      Kind = "priorWeek"
	CurrentMonth   Kind = "currentMonth"
	PriorMonth     Kind = "priorMonth"
	CurrentQuarter Kind = "currentQuarter"
	PriorQuarter   Kind = "priorQuarter"
	CurrentYear    Kind = "currentYear"
	PriorYear      Kind = "priorYear"
)

// Kinds lists every supported kind.
var Kinds = []Kind{CurrentWeek, PriorWeek, CurrentMonth, PriorMonth, CurrentQuarter, PriorQuarter, CurrentYear, PriorYear}

// ParseKind maps a name to a Kind. Unknown names resolve to CurrentWeek.
func ParseKind(s string) Kind {
	for _, k := range Kinds {
		if string(k) == s {
			return k
		}
	}
	return CurrentWeek
}

// Selector carries the boolean selector flags accepted by the sales query.
type Selector struct {
	Prior        bool
	Month        bool
	LastMonth    bool
	Quarter      bool
	PriorQuarter bool
	Year         bool
	PriorYear    bool
}

// Kind picks exactly one window: the first true flag in the order
// prior-week, month, last-month, quarter, prior-quarter, year, prior-year;
// CurrentWeek when none is set.
func (s Selector) Kind() Kind {
	switch {
	case s.Prior:
		return PriorWeek
	case s.Month:
		return CurrentMonth
	case s.LastMonth:
		return PriorMonth
	case s.Quarter:
		return CurrentQuarter
	case s.PriorQuarter:
		return PriorQuarter
	case s.Year:
		return CurrentYear
	case s.PriorYear:
		return PriorYear
	default:
		return CurrentWeek
	}
}

// Window is a resolved, inclusive date range.
type Window struct {
	Kind  Kind
	Start Date
	End   Date
}

// Span returns the half-open instant range [start of w.Start, start of the
// day after w.End) in loc.
func (w Window) Span(loc *time.Location) (start, end time.Time) {
	return w.Start.In(loc), w.End.AddDays(1).In(loc)
}

// Resolve maps kind and a reference date to its window. Weeks start on Monday.
func Resolve(kind Kind, ref Date) Window {
	w := Window{Kind: kind}
	switch kind {
	case PriorWeek:
		w.End = ref.AddDays(-(daysSinceMonday(ref) + 1))
		w.Start = w.End.AddDays(-6)
	case CurrentMonth:
		w.Start = NewDate(ref.Year, ref.Month, 1)
		w.End = ref
	case PriorMonth:
		w.End = NewDate(ref.Year, ref.Month, 1).AddDays(-1)
		w.Start = NewDate(w.End.Year, w.End.Month, 1)
	case CurrentQuarter:
		w.Start, w.End = quarterBounds(ref.Year, ref.Month)
	case PriorQuarter:
		w.Start, w.End = quarterBounds(ref.Year-1, ref.Month)
	case CurrentYear:
		w.Start = NewDate(ref.Year, time.January, 1)
		w.End = NewDate(ref.Year, time.December, 31)
	case PriorYear:
		w.Start = NewDate(ref.Year-1, time.January, 1)
		w.End = NewDate(ref.Year-1, time.December, 31)
	default:
		w.Kind = CurrentWeek
		w.Start = ref.AddDays(-daysSinceMonday(ref))
		w.End = w.Start.AddDays(6)
	}
	return w
}

// daysSinceMonday returns 0 for Monday through 6 for Sunday.
func daysSinceMonday(d Date) int {
	return (int(d.Weekday()) + 6) % 7
}

// quarterBounds returns the first and last day of the quarter containing month in year.
func quarterBounds(year int, month time.Month) (Date, Date) {
	startMonth := time.Month((int(month)-1)/3*3 + 1)
	endMonth := startMonth + 2
	return NewDate(year, startMonth, 1), NewDate(year, endMonth, lastDayOfMonth(year, endMonth))
}
