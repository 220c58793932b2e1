// Package calendar provides the trading-date and market-hours helpers used to
// select 0DTE chain entries and to gate order entry.
package calendar

import (
	"time"
)

// NYSE regular session hours, Eastern time.
var (
	marketOpen  = 9 * time.Hour
	marketClose = 16 * time.Hour
)

func easternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Without tzdata fall back to a fixed EST offset.
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// TodaysTradingDate returns the current date in New York, truncated to
// midnight. Used to select the 0DTE expiration in an option chain.
func TodaysTradingDate() time.Time {
	now := time.Now().In(easternTime())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// MarketIsOpen reports whether the NYSE regular session is open at t,
// accounting for weekends and exchange holidays.
func MarketIsOpen(t time.Time) bool {
	et := t.In(easternTime())

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false
	}
	if IsHoliday(et) {
		return false
	}

	sinceMidnight := time.Duration(et.Hour())*time.Hour +
		time.Duration(et.Minute())*time.Minute +
		time.Duration(et.Second())*time.Second
	return sinceMidnight >= marketOpen && sinceMidnight <= marketClose
}

// IsHoliday reports whether t falls on an NYSE full-day holiday.
func IsHoliday(t time.Time) bool {
	y, m, d := t.Year(), t.Month(), t.Day()
	for _, h := range holidays(y) {
		if h.Month() == m && h.Day() == d {
			return true
		}
	}
	return false
}

// holidays returns the NYSE full-day holidays for a year, with weekend
// observation shifts applied (Saturday -> Friday, Sunday -> Monday).
func holidays(year int) []time.Time {
	hs := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),   // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),                     // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),                    // Washington's Birthday
		goodFriday(year),                                                   //
		lastWeekday(year, time.May, time.Monday),                           // Memorial Day
		observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)),     // Juneteenth
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),      // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),                   // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4),                  // Thanksgiving
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)), // Christmas
	}
	return hs
}

// observed shifts a fixed-date holiday off the weekend.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the nth given weekday of a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday returns Good Friday (two days before Easter Sunday) for a year.
// Easter via the anonymous Gregorian computus.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
