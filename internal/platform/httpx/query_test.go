package httpx

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDayInLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	from, err := ParseDay("2026-03-11", false, jakarta)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 10, 17, 0, 0, 0, time.UTC), from.UTC())

	to, err := ParseDay("2026-03-11", true, jakarta)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.March, 11, 16, 59, 59, 999999999, time.UTC), to.UTC())

	utc, err := ParseDay("2026-03-11", false, nil)
	require.NoError(t, err)
	require.Equal(t, time.UTC, utc.Location())
}

func TestParseDayAcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 2026-03-08 is 23 hours long in New York.
	from, err := ParseDay("2026-03-08", false, ny)
	require.NoError(t, err)
	to, err := ParseDay("2026-03-08", true, ny)
	require.NoError(t, err)
	require.Equal(t, 23*time.Hour-time.Nanosecond, to.Sub(from))
}

func TestParseDayRejectsBadInput(t *testing.T) {
	zero, err := ParseDay("", true, time.UTC)
	require.NoError(t, err)
	require.True(t, zero.IsZero())

	_, err = ParseDay("11/03/2026", false, time.UTC)
	require.True(t, errors.Is(err, ErrBadRequest))
	require.Equal(t, http.StatusBadRequest, StatusFor(err))
}
