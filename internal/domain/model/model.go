// Package model contains the rows passed between the data source and the analytics service.
package model

import "time"

// Source names the stream an activity timestamp came from.
type Source string

const (
	SourceNone Source = ""
	SourceCart Source = "cart"
	SourceItem Source = "item"
)

// ActivityEvent is one timestamped occurrence from a source stream.
type ActivityEvent struct {
	At     time.Time
	Source Source
}

// DayHour is one historical event reduced to its weekday name and hour of day.
type DayHour struct {
	Day  string // e.g. "Monday"
	Hour int    // 0..23
}

// Valid reports whether the hour is within a day and the day is a weekday name.
func (d DayHour) Valid() bool {
	if d.Hour < 0 || d.Hour > 23 {
		return false
	}
	_, ok := weekdayIndex[d.Day]
	return ok
}

// HourCount is the number of events in one hour of a single date.
type HourCount struct {
	Hour  int
	Count int64
}

// ActivitySignals carries the two independent "last updated" timestamps.
// A zero time means the stream has no rows.
type ActivitySignals struct {
	LastCart time.Time
	LastItem time.Time
}

// Cart is a cart touched on a given day.
type Cart struct {
	ProfileID string    `json:"profileId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Account is a customer profile active on a given day.
type Account struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	CustomerID      string `json:"customerId"`
	NumPurchases    int64  `json:"numPurchases"`
	RecentlyOrdered bool   `json:"recentlyOrdered"`
	HasCartItems    bool   `json:"hasCartItems"`
}

var weekdayIndex = map[string]time.Weekday{
	time.Sunday.String():    time.Sunday,
	time.Monday.String():    time.Monday,
	time.Tuesday.String():   time.Tuesday,
	time.Wednesday.String(): time.Wednesday,
	time.Thursday.String():  time.Thursday,
	time.Friday.String():    time.Friday,
	time.Saturday.String():  time.Saturday,
}

// ParseWeekday maps an English weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdayIndex[name]
	return wd, ok
}
