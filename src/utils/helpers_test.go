package utils

import (
	"strings"
	"testing"

	"vitacal/src/types"

	"github.com/stretchr/testify/assert"
)

func TestParseHHMM(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"09:00": 540,
		"09:15": 555,
		"17:30": 1050,
		"23:59": 1439,
		"24:00": 1440,
	}
	for input, expected := range cases {
		minutes, err := ParseHHMM(input)
		assert.Nil(t, err, input)
		assert.Equal(t, expected, minutes, input)
	}

	for _, input := range []string{"", "9am", "24:01", "25:00", "12:60", "12", "-1:00", "12:5:0"} {
		_, err := ParseHHMM(input)
		assert.NotNil(t, err, input)
	}
}

func TestValidateWindows(t *testing.T) {
	windows, err := ValidateWindows([]types.ScheduleWindowInput{
		{Weekday: 1, Start: "09:00", End: "12:00"},
		{Weekday: 1, Start: "14:00", End: "18:00"},
		{Weekday: 2, Start: "09:00", End: "24:00"},
	})
	assert.Nil(t, err)
	assert.Len(t, windows, 3)
	assert.Equal(t, 540, windows[0].StartMinute)
	assert.Equal(t, 720, windows[0].EndMinute)
	assert.Equal(t, 1440, windows[2].EndMinute)

	_, err = ValidateWindows([]types.ScheduleWindowInput{
		{Weekday: 1, Start: "12:00", End: "09:00"},
	})
	assert.NotNil(t, err)

	_, err = ValidateWindows([]types.ScheduleWindowInput{
		{Weekday: 1, Start: "09:00", End: "12:00"},
		{Weekday: 1, Start: "11:00", End: "13:00"},
	})
	assert.NotNil(t, err)

	// Same span on different weekdays is not an overlap.
	_, err = ValidateWindows([]types.ScheduleWindowInput{
		{Weekday: 1, Start: "09:00", End: "12:00"},
		{Weekday: 2, Start: "09:00", End: "12:00"},
	})
	assert.Nil(t, err)
}

func TestMeetingReference(t *testing.T) {
	ref := MeetingReference("Intro Call (30 min)")
	assert.True(t, strings.HasPrefix(ref, "intro-call-30-min-"), ref)

	other := MeetingReference("Intro Call (30 min)")
	assert.NotEqual(t, ref, other)
}
