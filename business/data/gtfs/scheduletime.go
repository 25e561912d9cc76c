package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SecondsPerDay is the length of a service day without daylight saving adjustments
	SecondsPerDay int = 24 * 60 * 60
	// MaximumScheduleSeconds is the latest schedule time accepted, trips may run past midnight into the next day
	MaximumScheduleSeconds int = 60 * 60 * 48
)

// ParseScheduleTime parses seconds of the schedule day from string defined in gtfs as :
// Time in the HH:MM:SS format (H:MM:SS is also accepted). The time is measured from "noon minus 12h" of the service
// day (effectively midnight except for days on which daylight savings time changes occur). For times occurring after
// midnight, enter the time as a value greater than 24:00:00 in HH:MM:SS local time for the day on which the trip
// schedule begins.
// Example: 14:30:00 for 2:30PM or 25:35:00 for 1:35AM on the next day.
func ParseScheduleTime(gtfsTime string) (int, error) {
	parts := strings.Split(strings.TrimSpace(gtfsTime), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected three colons in Time format: %s", gtfsTime)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("time out of range: %s", gtfsTime)
	}
	result := (hours * 60 * 60) + (minutes * 60) + seconds
	if result > MaximumScheduleSeconds {
		return 0, fmt.Errorf("time past maximum schedule time: %s", gtfsTime)
	}
	return result, nil
}

// FormatScheduleTime formats seconds of the schedule day as HH:MM:SS, hours may exceed 23
func FormatScheduleTime(scheduleSeconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", scheduleSeconds/3600, (scheduleSeconds/60)%60, scheduleSeconds%60)
}

// SecondsSinceMidnight returns the wall clock seconds elapsed since midnight of at's day in at's location
func SecondsSinceMidnight(at time.Time) int {
	return at.Hour()*3600 + at.Minute()*60 + at.Second()
}

// ParseServiceDate retrieves date from gtfs date formatted string:
// Service day in the YYYYMMDD format. Since time within a service day can be above 24:00:00, a service day often
// contains information for the subsequent day(s).
// Example: 20180913 for September 13th, 2018.
func ParseServiceDate(dateString string) (time.Time, error) {
	const layout = "20060102"
	return time.Parse(layout, strings.TrimSpace(dateString))
}

// FormatServiceDate formats date in gtfs YYYYMMDD format
func FormatServiceDate(date time.Time) string {
	return date.Format("20060102")
}

// getDLSTransitionSeconds provides the number of seconds offset for a 12am date later in the day after day light
// saving time is done
func getDLSTransitionSeconds(timeAt12 time.Time) int {
	before := time.Date(timeAt12.Year(), timeAt12.Month(), timeAt12.Day(), 0, 0, 0, 0, timeAt12.Location())
	after := time.Date(timeAt12.Year(), timeAt12.Month(), timeAt12.Day(), 5, 0, 0, 0, timeAt12.Location())
	_, beforeOffset := before.Zone()
	_, afterOffset := after.Zone()
	return afterOffset - beforeOffset
}

// MakeScheduleTime produces a time from by adding seconds to a 12am date. Takes into account day light saving time
func MakeScheduleTime(timeAt12 time.Time, scheduleSeconds int) time.Time {
	offset := getDLSTransitionSeconds(timeAt12)
	scheduleSeconds = scheduleSeconds + (0 - offset)
	return timeAt12.Add(time.Duration(scheduleSeconds) * time.Second)
}

// Get12AmTime returns midnight at the start of date's day in date's location
func Get12AmTime(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}
