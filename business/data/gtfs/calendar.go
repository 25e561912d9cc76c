package gtfs

import (
	"time"
)

// Calendar contains data from a record in a gtfs calendar.txt file
type Calendar struct {
	ServiceId string `json:"service_id"`
	Monday    int    `json:"monday"`
	Tuesday   int    `json:"tuesday"`
	Wednesday int    `json:"wednesday"`
	Thursday  int    `json:"thursday"`
	Friday    int    `json:"friday"`
	Saturday  int    `json:"saturday"`
	Sunday    int    `json:"sunday"`
	// StartDate and EndDate are zero if they could not be parsed, which leaves the service inactive
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// CalendarDate contains data from a record in a gtfs calendar_dates.txt file
type CalendarDate struct {
	ServiceId     string    `json:"service_id"`
	Date          time.Time `json:"date"`
	ExceptionType int       `json:"exception_type"`
}

const (
	// ServiceAdded is the calendar_dates exception_type for service added on a date
	ServiceAdded = 1
	// ServiceRemoved is the calendar_dates exception_type for service removed on a date
	ServiceRemoved = 2
)

func buildCalendar(r Record) Calendar {
	calendar := Calendar{
		ServiceId: r.str("service_id"),
		Monday:    r.intOr("monday", 0),
		Tuesday:   r.intOr("tuesday", 0),
		Wednesday: r.intOr("wednesday", 0),
		Thursday:  r.intOr("thursday", 0),
		Friday:    r.intOr("friday", 0),
		Saturday:  r.intOr("saturday", 0),
		Sunday:    r.intOr("sunday", 0),
	}
	calendar.StartDate, _ = ParseServiceDate(r.str("start_date"))
	calendar.EndDate, _ = ParseServiceDate(r.str("end_date"))
	return calendar
}

func buildCalendarDate(r Record) CalendarDate {
	calendarDate := CalendarDate{
		ServiceId:     r.str("service_id"),
		ExceptionType: r.intOr("exception_type", 0),
	}
	calendarDate.Date, _ = ParseServiceDate(r.str("date"))
	return calendarDate
}

// runsOn returns true if the calendar's weekday column for weekday is set
func (c *Calendar) runsOn(weekday time.Weekday) bool {
	switch weekday {
	case time.Monday:
		return c.Monday == 1
	case time.Tuesday:
		return c.Tuesday == 1
	case time.Wednesday:
		return c.Wednesday == 1
	case time.Thursday:
		return c.Thursday == 1
	case time.Friday:
		return c.Friday == 1
	case time.Saturday:
		return c.Saturday == 1
	case time.Sunday:
		return c.Sunday == 1
	}
	return false
}

// civilDate strips time and location from date so it compares with dates parsed from gtfs files
func civilDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// ActiveServiceIds retrieves the active serviceIds on provided serviceDate.
// both calendar and calendar_date are used. When holidays is not nil observed holidays use the sunday column of
// calendar.txt
func (s *ScheduleIndex) ActiveServiceIds(serviceDate time.Time, holidays *HolidayCalendar) map[string]bool {
	serviceIdMap := make(map[string]bool)
	day := civilDate(serviceDate)

	weekday := day.Weekday()
	if holidays.IsHoliday(serviceDate) {
		weekday = time.Sunday
	}

	for serviceId, calendar := range s.Calendars {
		if calendar.StartDate.IsZero() || calendar.EndDate.IsZero() {
			continue
		}
		if day.Before(calendar.StartDate) || day.After(calendar.EndDate) {
			continue
		}
		if calendar.runsOn(weekday) {
			serviceIdMap[serviceId] = true
		}
	}

	for _, calendarDate := range s.CalendarDates {
		if !calendarDate.Date.Equal(day) {
			continue
		}
		if calendarDate.ExceptionType == ServiceAdded {
			serviceIdMap[calendarDate.ServiceId] = true
		} else if calendarDate.ExceptionType == ServiceRemoved {
			delete(serviceIdMap, calendarDate.ServiceId)
		}
	}

	return serviceIdMap
}

// IsTripActive returns true if tripId is known and its service_id runs on serviceDate
func (s *ScheduleIndex) IsTripActive(tripId string, serviceDate time.Time, holidays *HolidayCalendar) bool {
	trip, present := s.Trips[tripId]
	if !present {
		return false
	}
	return s.ActiveServiceIds(serviceDate, holidays)[trip.ServiceId]
}
