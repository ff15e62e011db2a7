package config

import (
	"time"
)

// Timer is the human-editable interval shape used in the settings file.
type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

// Interval converts the timer to a duration, enforcing a one second
// floor so a zeroed timer cannot spin a maintenance loop.
func (t Timer) Interval() time.Duration {
	total := time.Duration(t.Days)*24*time.Hour +
		time.Duration(t.Hours)*time.Hour +
		time.Duration(t.Minutes)*time.Minute +
		time.Duration(t.Seconds)*time.Second

	if total < time.Second {
		return time.Second
	}
	return total
}
