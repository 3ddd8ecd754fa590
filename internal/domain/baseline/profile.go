package baseline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// HourLabel formats hour h as "HH:00 - HH+1:00"; hour 23 yields "23:00 - 24:00".
func HourLabel(h int) string {
	return fmt.Sprintf("%02d:00 - %02d:00", h, h+1)
}

// HourBucket is one labelled hour and its value.
type HourBucket struct {
	Hour  int
	Label string
	Value float64
}

// HourProfile is an hour-ordered list of buckets. It marshals to a JSON
// object whose keys keep ascending hour order.
type HourProfile []HourBucket

// Get returns the value for hour h, or 0 when the hour is absent.
func (p HourProfile) Get(h int) float64 {
	for _, b := range p {
		if b.Hour == h {
			return b.Value
		}
	}
	return 0
}

// Max returns the largest value in the profile.
func (p HourProfile) Max() float64 {
	var m float64
	for _, b := range p {
		if b.Value > m {
			m = b.Value
		}
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (p HourProfile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(b.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// round4 rounds half away from zero to 4 decimal places.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
