package depot

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Business date of an event (day granularity, UTC)
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. Events are ordered by Date, never by creation time.
type Date struct {
	Time time.Time
}

// EpochSentinel precedes every real event date. It is the date of the
// virtual zero baseline used when a depot has no closing snapshot.
var EpochSentinel = NewDate(1900, time.January, 1)

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals in tests and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format(DateLayout) }

// =============================================================================
// CLOCK - Source of "today"
// =============================================================================

// Clock supplies the current business date. Inject a FixedClock in tests.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Today() Date { return DateOf(time.Now()) }

// FixedClock always reports the same day.
type FixedClock struct {
	Day Date
}

func (c FixedClock) Today() Date { return c.Day }
