package availability

import (
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
)

type DateBucket string

const (
	BucketPast   DateBucket = "past"
	BucketToday  DateBucket = "today"
	BucketFuture DateBucket = "future"
)

// Clock reads the current time in the clinic's time zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location, now func() time.Time) Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Clock{loc: loc, now: now}
}

func (c Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c Clock) Location() *time.Location {
	return c.loc
}

func (c Clock) Today() model.Date {
	return model.DateOf(c.Now())
}

// Bucket places date relative to today.
func (c Clock) Bucket(date model.Date) DateBucket {
	return BucketOf(date, c.Today())
}

func BucketOf(date, today model.Date) DateBucket {
	switch {
	case date.Before(today):
		return BucketPast
	case date.After(today):
		return BucketFuture
	default:
		return BucketToday
	}
}

// HasPassed reports whether (date, t) is before today or earlier than the
// current minute of today.
func (c Clock) HasPassed(date model.Date, t model.TimeOfDay) bool {
	switch c.Bucket(date) {
	case BucketPast:
		return true
	case BucketToday:
		return t <= model.TimeOfDayOf(c.Now())
	default:
		return false
	}
}
