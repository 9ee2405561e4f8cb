package httpx

import (
	"errors"
	"time"
)

// ParseDay reads a YYYY-MM-DD query value as the first instant of that day in
// loc, or its last instant when endOfDay is set. An empty value yields the zero time.
func ParseDay(raw string, endOfDay bool, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, Classify(errors.New("dates must use YYYY-MM-DD"), ErrBadRequest)
	}
	if endOfDay {
		// AddDate keeps DST days at their real length.
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
