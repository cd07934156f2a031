package domain

import "time"

const dateLayout = "2006-01-02"

// BusinessCalendar answers business-day questions. Weekends are never business
// days; holidays are injected and compared by calendar date in Location.
type BusinessCalendar struct {
	location *time.Location
	holidays map[string]struct{}
}

func NewBusinessCalendar(location *time.Location, holidays []time.Time) *BusinessCalendar {
	if location == nil {
		location = time.UTC
	}
	c := &BusinessCalendar{
		location: location,
		holidays: make(map[string]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		c.holidays[h.Format(dateLayout)] = struct{}{}
	}
	return c
}

func (c *BusinessCalendar) Location() *time.Location {
	return c.location
}

func (c *BusinessCalendar) IsBusinessDay(day time.Time) bool {
	day = day.In(c.location)
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[day.Format(dateLayout)]
	return !holiday
}

// NextBusinessDay returns the offset-th business day strictly after from, at
// midnight in the calendar location. A non-business from is never counted.
// Offsets below one return the first business day at or after from.
func (c *BusinessCalendar) NextBusinessDay(from time.Time, offset int) time.Time {
	local := from.In(c.location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.location)

	if offset < 1 {
		for !c.IsBusinessDay(day) {
			day = day.AddDate(0, 0, 1)
		}
		return day
	}

	for counted := 0; counted < offset; {
		day = day.AddDate(0, 0, 1)
		if c.IsBusinessDay(day) {
			counted++
		}
	}
	return day
}
