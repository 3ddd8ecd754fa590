// Package baseline builds and caches the weekday/hour demand baseline.
package baseline

import (
	"context"

	"github.com/okian/storepulse/internal/domain/calendar"
	"github.com/okian/storepulse/internal/domain/model"
)

// DayBucket is the aggregated demand of one weekday.
type DayBucket struct {
	Day         string      `json:"-"`
	Probability float64     `json:"probability"`
	BusyHours   HourProfile `json:"busy_hours"`
	Events      int64       `json:"-"`
}

// Snapshot is an immutable baseline computed on a single date.
// Weekdays without events are absent from Days.
type Snapshot struct {
	ComputedOn calendar.Date
	Days       map[string]DayBucket
}

// Query returns the bucket for day, or a zero bucket when the day has no events.
func (s *Snapshot) Query(day string) DayBucket {
	if s != nil {
		if b, ok := s.Days[day]; ok {
			return b
		}
	}
	return DayBucket{Day: day, BusyHours: HourProfile{}}
}

// Recompute tallies events per weekday and per weekday hour. Day probabilities
// are normalized by the busiest weekday and hour values by each weekday's
// busiest hour, both rounded to 4 places. Rows with an unknown day or an
// hour outside 0..23 are ignored.
func Recompute(on calendar.Date, events []model.DayHour) (*Snapshot, error) {
	dayCounts := make(map[string]int64)
	hourCounts := make(map[string]*[24]int64)
	for _, e := range events {
		if !e.Valid() {
			continue
		}
		dayCounts[e.Day]++
		hc, ok := hourCounts[e.Day]
		if !ok {
			hc = new([24]int64)
			hourCounts[e.Day] = hc
		}
		hc[e.Hour]++
	}
	if len(dayCounts) == 0 {
		return nil, ErrEmptyBaseline
	}

	var maxDay int64
	for _, c := range dayCounts {
		maxDay = max(maxDay, c)
	}

	snap := &Snapshot{ComputedOn: on, Days: make(map[string]DayBucket, len(dayCounts))}
	for day, count := range dayCounts {
		hc := hourCounts[day]
		var maxHour int64
		for _, c := range hc {
			maxHour = max(maxHour, c)
		}
		hours := make(HourProfile, 0, 24)
		for h, c := range hc {
			if c == 0 {
				continue
			}
			hours = append(hours, HourBucket{Hour: h, Label: HourLabel(h), Value: round4(float64(c) / float64(maxHour))})
		}
		snap.Days[day] = DayBucket{
			Day:         day,
			Probability: round4(float64(count) / float64(maxDay)),
			BusyHours:   hours,
			Events:      count,
		}
	}
	return snap, nil
}

// Feed supplies the historical (weekday, hour) event tuples.
type Feed func(ctx context.Context) ([]model.DayHour, error)
