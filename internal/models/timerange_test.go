package models

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"08:00":    Clock(8, 0),
		" 9:30 ":   Clock(9, 30),
		"17:45:00": Clock(17, 45),
		"24:00":    TimeOfDay(minutesPerDay),
	}
	for raw, want := range cases {
		got, err := ParseTimeOfDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "8", "25:00", "24:30", "10:60", "aa:00", "1:2:3:4"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	payload := struct {
		Start TimeOfDay `json:"start"`
	}{Start: Clock(9, 5)}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"09:05"}`, string(raw))

	payload.Start = 0
	require.NoError(t, json.Unmarshal([]byte(`{"start":"13:30"}`), &payload))
	assert.Equal(t, Clock(13, 30), payload.Start)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"1330"}`), &payload))
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("10:15:00")))
	assert.Equal(t, Clock(10, 15), tod)
	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 7, 45, 0, 0, time.UTC)))
	assert.Equal(t, Clock(7, 45), tod)
	assert.Error(t, tod.Scan(3.5))

	value, err := Clock(8, 0).Value()
	require.NoError(t, err)
	assert.Equal(t, "08:00", value)
}

func TestTimeOfDayOnKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	date := time.Date(2024, time.March, 3, 22, 10, 0, 0, loc)

	got := Clock(9, 30).On(date)
	assert.True(t, time.Date(2024, time.March, 3, 9, 30, 0, 0, loc).Equal(got))
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, Clock(9, 30), TimeOfDayOf(got))
}

func TestTimeOfDayOnAcrossDSTChange(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// Clocks go back at 03:00 on 2024-10-27 and forward at 02:00 on 2025-03-30.
	autumn := time.Date(2024, time.October, 27, 0, 0, 0, 0, paris)
	got := Clock(9, 0).On(autumn)
	assert.Equal(t, "2024-10-27T09:00:00+01:00", got.Format(time.RFC3339))
	assert.Equal(t, Clock(9, 0), TimeOfDayOf(got))

	spring := time.Date(2025, time.March, 30, 0, 0, 0, 0, paris)
	got = Clock(14, 30).On(spring)
	assert.Equal(t, "2025-03-30T14:30:00+02:00", got.Format(time.RFC3339))

	end := TimeOfDay(minutesPerDay).On(autumn)
	assert.True(t, end.Equal(time.Date(2024, time.October, 28, 0, 0, 0, 0, paris)))
	assert.Equal(t, 25*time.Hour, end.Sub(Midnight(autumn)))
}

func TestTimeRangeHelpers(t *testing.T) {
	day := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)
	r := NewTimeRange(day.Add(9*time.Hour), day.Add(10*time.Hour))

	assert.True(t, r.IsValid())
	assert.Equal(t, time.Hour, r.Duration())
	assert.True(t, DayRange(day.Add(5*time.Hour)).Contains(r))
	assert.False(t, r.Contains(DayRange(day)))
	assert.Equal(t, day.Add(10*time.Hour+15*time.Minute), r.ExtendEnd(15*time.Minute).End)
	assert.False(t, NewTimeRange(r.End, r.Start).IsValid())
	assert.False(t, NewTimeRange(r.Start, r.Start).IsValid())
	assert.Equal(t, "[2024-09-02T09:00:00Z, 2024-09-02T10:00:00Z)", r.String())
}
