package core

import (
	"fmt"
	"time"
)

// PeriodKind selects how a report period is anchored to the current time.
type PeriodKind string

const (
	PeriodToday             PeriodKind = "today"
	PeriodLastSevenDays     PeriodKind = "week"
	PeriodLastCalendarMonth PeriodKind = "month"
	PeriodRange             PeriodKind = "custom"
)

// Period is a date predicate over transaction timestamps. Relative kinds
// (today/week/month) are resolved against the `now` passed to Filter, so a
// Period value stays valid across days.
type Period struct {
	Kind  PeriodKind
	Start time.Time // range only
	End   time.Time // range only, inclusive through end of day
}

func Today() Period             { return Period{Kind: PeriodToday} }
func LastSevenDays() Period     { return Period{Kind: PeriodLastSevenDays} }
func LastCalendarMonth() Period { return Period{Kind: PeriodLastCalendarMonth} }

// Range builds an inclusive custom period from "2006-01-02" date strings.
// The end bound extends through 23:59:59.999 of the end day. Unparseable
// dates and start > end fail with ErrInvalidRange.
func Range(start, end string) (Period, error) {
	s, err := time.ParseInLocation("2006-01-02", start, time.Local)
	if err != nil {
		return Period{}, fmt.Errorf("%w: start %q", ErrInvalidRange, start)
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.Local)
	if err != nil {
		return Period{}, fmt.Errorf("%w: end %q", ErrInvalidRange, end)
	}
	if s.After(e) {
		return Period{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}
	e = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 999000000, e.Location())
	return Period{Kind: PeriodRange, Start: s, End: e}, nil
}

// Contains reports whether a timestamp falls inside the period, resolving
// relative kinds against now.
func (p Period) Contains(ts, now time.Time) bool {
	switch p.Kind {
	case PeriodToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return !ts.Before(start)
	case PeriodLastSevenDays:
		return !ts.Before(now.Add(-7 * 24 * time.Hour))
	case PeriodLastCalendarMonth:
		start := time.Date(now.Year(), now.Month()-1, now.Day(), 0, 0, 0, 0, now.Location())
		return !ts.Before(start)
	case PeriodRange:
		return !ts.Before(p.Start) && !ts.After(p.End)
	default:
		return false
	}
}

// FilterTransactions returns the transactions matching the period, preserving
// log order. The rendering layer may reverse for newest-first display.
func FilterTransactions(txs []Transaction, p Period, now time.Time) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if p.Contains(t.Timestamp, now) {
			out = append(out, t)
		}
	}
	return out
}

// ReportSummary aggregates a filtered transaction sequence.
type ReportSummary struct {
	TotalRevenue Money
	Count        int
}

// Aggregate sums the stored totals and counts the sequence. It trusts the
// persisted totals and never recomputes from line items.
func Aggregate(txs []Transaction) ReportSummary {
	var sum ReportSummary
	for _, t := range txs {
		sum.TotalRevenue.Cents += t.Total.Cents
		sum.Count++
	}
	return sum
}
