package gtfs

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// HolidayCalendar holds the holidays observed by a transit agency, on which sunday service is assumed
type HolidayCalendar struct {
	calendar *cal.BusinessCalendar
}

// NewUSHolidayCalendar builds HolidayCalendar with the federal holidays most US transit agencies run sunday
// service on
func NewUSHolidayCalendar() *HolidayCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MlkDay,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
		us.Juneteenth,
	)
	return &HolidayCalendar{calendar: calendar}
}

// IsHoliday returns true if at is on an observed holiday. A nil HolidayCalendar has no holidays
func (h *HolidayCalendar) IsHoliday(at time.Time) bool {
	if h == nil {
		return false
	}
	_, observed, _ := h.calendar.IsHoliday(at)
	return observed
}
