package common

import (
	"fmt"
	"time"

	"vitacal/src/config"
	"vitacal/src/models"
	"vitacal/src/types"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// fitsWindow reports whether the local span [startLocal, endLocal) lies
// entirely inside one availability window of startLocal's weekday. A span
// ending exactly at the next local midnight counts as minute 1440.
func fitsWindow(windows []models.AvailabilityWindow, startLocal, endLocal time.Time) bool {
	startMin := minutesOfDay(startLocal)
	endMin := minutesOfDay(endLocal)
	sy, sd := startLocal.Year(), startLocal.YearDay()
	ey, ed := endLocal.Year(), endLocal.YearDay()
	if sy != ey || sd != ed {
		if endMin != 0 {
			return false
		}
		next := startLocal.AddDate(0, 0, 1)
		if endLocal.Year() != next.Year() || endLocal.YearDay() != next.YearDay() {
			return false
		}
		endMin = 24 * 60
	}
	weekday := int(startLocal.Weekday())
	for _, w := range windows {
		if w.Weekday != weekday {
			continue
		}
		if w.StartMinute <= startMin && endMin <= w.EndMinute {
			return true
		}
	}
	return false
}

// ComputeValidTimes returns the bookable start instants for one expert and
// event within [rangeStart, rangeEnd), in ascending order. Candidates are
// generated on a fixed 15-minute grid; each must clear the minimum-notice
// cut, fit entirely inside one availability window of the schedule's
// timezone (wall-clock evaluation, correct across DST transitions), and
// stay disjoint from every busy interval. Pure: no I/O, no mutation.
func ComputeValidTimes(schedule *models.Schedule, event *models.Event, busy []types.BusyInterval, rangeStart, rangeEnd, now time.Time) ([]time.Time, error) {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", schedule.Timezone, err)
	}
	duration := time.Duration(event.DurationMinutes) * time.Minute
	notice := time.Duration(event.NoticeMinutes) * time.Minute
	if event.NoticeMinutes == 0 {
		notice = time.Duration(schedule.NoticeMinutes) * time.Minute
	}
	earliest := now.Add(notice)

	step := config.SlotStepMinutes * time.Minute
	valid := []time.Time{}
	for candidate := rangeStart.Truncate(step); candidate.Before(rangeEnd); candidate = candidate.Add(step) {
		if candidate.Before(rangeStart) {
			continue
		}
		if candidate.Before(earliest) {
			continue
		}
		end := candidate.Add(duration)
		if !fitsWindow(schedule.Windows, candidate.In(loc), end.In(loc)) {
			continue
		}
		free := true
		for _, b := range busy {
			if Overlaps(candidate, end, b.Start, b.End) {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		valid = append(valid, candidate)
	}
	return valid, nil
}

// SlotIsValid is the targeted single-candidate form used on the write
// path: it re-runs the calculator for exactly one grid instant.
func SlotIsValid(schedule *models.Schedule, event *models.Event, busy []types.BusyInterval, start, now time.Time) (bool, error) {
	times, err := ComputeValidTimes(schedule, event, busy, start, start.Add(time.Minute), now)
	if err != nil {
		return false, err
	}
	for _, t := range times {
		if t.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}
