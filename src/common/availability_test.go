package common

import (
	"testing"
	"time"

	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/stretchr/testify/assert"
)

func lisbonSchedule(windows ...models.AvailabilityWindow) *models.Schedule {
	return &models.Schedule{
		ID:       1,
		ExpertID: 1,
		Timezone: "Europe/Lisbon",
		Windows:  windows,
	}
}

func window(weekday, startMin, endMin int) models.AvailabilityWindow {
	return models.AvailabilityWindow{Weekday: weekday, StartMinute: startMin, EndMinute: endMin}
}

func mustUTC(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	assert.Nil(t, err)
	return parsed.UTC()
}

// Monday 09:00-12:00 Lisbon, 30-minute sessions, 60 minutes notice,
// queried at 08:00 on the same Monday: the first bookable time is 09:00
// local. 2026-01-05 is a Monday; Lisbon is UTC+0 in January.
func TestComputeValidTimesFirstSlotAfterNotice(t *testing.T) {
	schedule := lisbonSchedule(window(1, 9*60, 12*60))
	event := &models.Event{DurationMinutes: 30, NoticeMinutes: 60}
	now := mustUTC(t, "2026-01-05T08:00:00Z")
	from := mustUTC(t, "2026-01-05T00:00:00Z")
	to := mustUTC(t, "2026-01-06T00:00:00Z")

	times, err := ComputeValidTimes(schedule, event, nil, from, to, now)
	assert.Nil(t, err)
	assert.NotEmpty(t, times)
	assert.Equal(t, mustUTC(t, "2026-01-05T09:00:00Z"), times[0])
	// Last start leaving room for the full 30 minutes inside the window.
	assert.Equal(t, mustUTC(t, "2026-01-05T11:30:00Z"), times[len(times)-1])
	assert.Len(t, times, 11)
}

func TestComputeValidTimesBusyOverlap(t *testing.T) {
	schedule := lisbonSchedule(window(1, 9*60, 12*60))
	event := &models.Event{DurationMinutes: 30, NoticeMinutes: 60}
	now := mustUTC(t, "2026-01-05T08:00:00Z")
	from := mustUTC(t, "2026-01-05T00:00:00Z")
	to := mustUTC(t, "2026-01-06T00:00:00Z")
	busy := []types.BusyInterval{
		{Start: mustUTC(t, "2026-01-05T09:30:00Z"), End: mustUTC(t, "2026-01-05T10:00:00Z")},
	}

	times, err := ComputeValidTimes(schedule, event, busy, from, to, now)
	assert.Nil(t, err)
	// 09:00 ends exactly where the busy span begins: half-open intervals
	// do not overlap.
	assert.Contains(t, times, mustUTC(t, "2026-01-05T09:00:00Z"))
	assert.Contains(t, times, mustUTC(t, "2026-01-05T10:00:00Z"))
	assert.NotContains(t, times, mustUTC(t, "2026-01-05T09:15:00Z"))
	assert.NotContains(t, times, mustUTC(t, "2026-01-05T09:30:00Z"))
	assert.NotContains(t, times, mustUTC(t, "2026-01-05T09:45:00Z"))
}

// A slot must fit entirely inside one window; it may not bridge the gap
// between two adjacent windows.
func TestComputeValidTimesRejectsGapSpanning(t *testing.T) {
	schedule := lisbonSchedule(
		window(1, 9*60, 10*60),
		window(1, 10*60+15, 11*60+15),
	)
	event := &models.Event{DurationMinutes: 45, NoticeMinutes: 0}
	now := mustUTC(t, "2026-01-01T00:00:00Z")
	from := mustUTC(t, "2026-01-05T00:00:00Z")
	to := mustUTC(t, "2026-01-06T00:00:00Z")

	times, err := ComputeValidTimes(schedule, event, nil, from, to, now)
	assert.Nil(t, err)
	assert.Contains(t, times, mustUTC(t, "2026-01-05T09:00:00Z"))
	assert.Contains(t, times, mustUTC(t, "2026-01-05T09:15:00Z"))
	// 09:30-10:15 spills past the first window's end.
	assert.NotContains(t, times, mustUTC(t, "2026-01-05T09:30:00Z"))
	assert.Contains(t, times, mustUTC(t, "2026-01-05T10:15:00Z"))
}

// Lisbon enters summer time on 2026-03-29. The same 09:00 wall-clock
// window is 09:00 UTC the Sunday before and 08:00 UTC on transition day.
func TestComputeValidTimesDSTTransition(t *testing.T) {
	schedule := lisbonSchedule(window(0, 9*60, 12*60))
	event := &models.Event{DurationMinutes: 30, NoticeMinutes: 0}
	now := mustUTC(t, "2026-01-01T00:00:00Z")

	before, err := ComputeValidTimes(schedule, event, nil,
		mustUTC(t, "2026-03-22T00:00:00Z"), mustUTC(t, "2026-03-23T00:00:00Z"), now)
	assert.Nil(t, err)
	assert.NotEmpty(t, before)
	assert.Equal(t, mustUTC(t, "2026-03-22T09:00:00Z"), before[0])

	after, err := ComputeValidTimes(schedule, event, nil,
		mustUTC(t, "2026-03-29T00:00:00Z"), mustUTC(t, "2026-03-30T00:00:00Z"), now)
	assert.Nil(t, err)
	assert.NotEmpty(t, after)
	assert.Equal(t, mustUTC(t, "2026-03-29T08:00:00Z"), after[0])
}

func TestComputeValidTimesIdempotent(t *testing.T) {
	schedule := lisbonSchedule(window(1, 9*60, 12*60), window(3, 14*60, 17*60))
	event := &models.Event{DurationMinutes: 60, NoticeMinutes: 120}
	now := mustUTC(t, "2026-01-04T12:00:00Z")
	from := mustUTC(t, "2026-01-05T00:00:00Z")
	to := mustUTC(t, "2026-01-12T00:00:00Z")
	busy := []types.BusyInterval{
		{Start: mustUTC(t, "2026-01-05T10:00:00Z"), End: mustUTC(t, "2026-01-05T11:00:00Z")},
	}

	first, err := ComputeValidTimes(schedule, event, busy, from, to, now)
	assert.Nil(t, err)
	second, err := ComputeValidTimes(schedule, event, busy, from, to, now)
	assert.Nil(t, err)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.True(t, first[i-1].Before(first[i]), "output must be strictly ascending")
	}
}

func TestComputeValidTimesSchedulesFallBackToScheduleNotice(t *testing.T) {
	schedule := lisbonSchedule(window(1, 9*60, 12*60))
	schedule.NoticeMinutes = 180
	event := &models.Event{DurationMinutes: 30, NoticeMinutes: 0}
	now := mustUTC(t, "2026-01-05T08:00:00Z")
	from := mustUTC(t, "2026-01-05T00:00:00Z")
	to := mustUTC(t, "2026-01-06T00:00:00Z")

	times, err := ComputeValidTimes(schedule, event, nil, from, to, now)
	assert.Nil(t, err)
	assert.NotEmpty(t, times)
	// 3-hour notice from 08:00 pushes the first slot to 11:00.
	assert.Equal(t, mustUTC(t, "2026-01-05T11:00:00Z"), times[0])
}

func TestComputeValidTimesInvalidTimezone(t *testing.T) {
	schedule := &models.Schedule{Timezone: "Not/AZone"}
	event := &models.Event{DurationMinutes: 30}
	_, err := ComputeValidTimes(schedule, event, nil, time.Now(), time.Now().Add(time.Hour), time.Now())
	assert.NotNil(t, err)
}

func TestSlotIsValidRejectsOffGridStart(t *testing.T) {
	schedule := lisbonSchedule(window(1, 9*60, 12*60))
	event := &models.Event{DurationMinutes: 30, NoticeMinutes: 0}
	now := mustUTC(t, "2026-01-01T00:00:00Z")

	ok, err := SlotIsValid(schedule, event, nil, mustUTC(t, "2026-01-05T09:00:00Z"), now)
	assert.Nil(t, err)
	assert.True(t, ok)

	ok, err = SlotIsValid(schedule, event, nil, mustUTC(t, "2026-01-05T09:05:00Z"), now)
	assert.Nil(t, err)
	assert.False(t, ok)
}

func TestOverlaps(t *testing.T) {
	base := mustUTC(t, "2026-01-05T09:00:00Z")
	cases := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		expected bool
	}{
		{"disjoint", base, base.Add(30 * time.Minute), base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"adjacent half-open", base, base.Add(30 * time.Minute), base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"partial", base, base.Add(30 * time.Minute), base.Add(15 * time.Minute), base.Add(time.Hour), true},
		{"contained", base, base.Add(time.Hour), base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"identical", base, base.Add(30 * time.Minute), base, base.Add(30 * time.Minute), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, Overlaps(c.aStart, c.aEnd, c.bStart, c.bEnd))
		})
	}
}
