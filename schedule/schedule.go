// Package schedule models weekly activity of simulated actors.
//
// It provides time-of-day periods, weekdays that parse from their english names,
// work schedules with per-day work hours and approximate durations used for
// randomized delays.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidWeekday is returned when a weekday cannot be parsed.
	ErrInvalidWeekday = errors.New("invalid weekday")
	// ErrInvalidTimeOfDay is returned when a time of day cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	// ErrInvalidWorkHours is returned when work hours do not start before they end.
	ErrInvalidWorkHours = errors.New("work hours must start before they end")
	// ErrInvalidBounds is returned when an approximate value has min > max.
	ErrInvalidBounds = errors.New("invalid boundaries, must be min <= max")
)

const (
	hoursPerDay = 24
	daysPerWeek = 7
)

// Weekday is a day of the week that decodes from its case-insensitive english name.
type Weekday time.Weekday

// ParseWeekday parses an english weekday name.
func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return Weekday(d), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

func (w Weekday) String() string {
	return time.Weekday(w).String()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Weekday) UnmarshalText(text []byte) error {
	day, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}

	*w = day

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (w Weekday) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// TimeOfDay is an offset from midnight.
type TimeOfDay time.Duration

// Clock builds a TimeOfDay from hours, minutes and seconds.
func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second)
}

// ParseTimeOfDay parses "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, strings.TrimSpace(s))
		if err == nil {
			return Clock(t.Hour(), t.Minute(), t.Second()), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// Of returns the time of day of t.
func Of(t time.Time) TimeOfDay {
	return Clock(t.Hour(), t.Minute(), t.Second()) + TimeOfDay(time.Duration(t.Nanosecond()))
}

// On returns the instant at this time of day on the date of t.
func (d TimeOfDay) On(t time.Time) time.Time {
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, t.Location()).Add(time.Duration(d))
}

func (d TimeOfDay) String() string {
	total := time.Duration(d)
	h := int(total / time.Hour)
	m := int(total % time.Hour / time.Minute)
	s := int(total % time.Minute / time.Second)

	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// TimePeriod is defined by a start and end time of day. A period whose start is
// after its end spans midnight.
type TimePeriod struct {
	Start TimeOfDay `mapstructure:"start_time" yaml:"start_time"`
	End   TimeOfDay `mapstructure:"end_time"   yaml:"end_time"`
}

// Contains reports whether the time of day lies within [Start, End).
func (p TimePeriod) Contains(t TimeOfDay) bool {
	if p.Start <= p.End {
		return p.Start <= t && t < p.End
	}

	return p.Start <= t || t < p.End
}

// WorkHours is a time period that does not span midnight.
type WorkHours struct {
	Start TimeOfDay `mapstructure:"start_time" yaml:"start_time"`
	End   TimeOfDay `mapstructure:"end_time"   yaml:"end_time"`
}

// NewWorkHours creates validated work hours.
func NewWorkHours(start, end TimeOfDay) (WorkHours, error) {
	hours := WorkHours{Start: start, End: end}

	return hours, hours.Validate()
}

// Contains reports whether the time of day lies within the work hours.
func (h WorkHours) Contains(t TimeOfDay) bool {
	return TimePeriod(h).Contains(t)
}

// Validate checks that the work hours start before they end.
func (h WorkHours) Validate() error {
	if h.Start >= h.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWorkHours, h.Start, h.End)
	}

	if time.Duration(h.End) > hoursPerDay*time.Hour {
		return fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, h.End)
	}

	return nil
}

// WorkSchedule is a weekly schedule made of work days and their work hours.
type WorkSchedule struct {
	WorkDays map[Weekday]WorkHours `mapstructure:"work_days" yaml:"work_days"`
}

// Validate checks all configured work hours.
func (s *WorkSchedule) Validate() error {
	for day, hours := range s.WorkDays {
		if err := hours.Validate(); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}

	return nil
}

// IsWorkDay reports whether the given day has work hours.
func (s *WorkSchedule) IsWorkDay(day Weekday) bool {
	_, ok := s.WorkDays[day]

	return ok
}

// IsWorkTime reports whether t is on a work day and within its work hours.
func (s *WorkSchedule) IsWorkTime(t time.Time) bool {
	hours, ok := s.WorkDays[Weekday(t.Weekday())]
	if !ok {
		return false
	}

	return hours.Contains(Of(t))
}

// NextWorkStart returns the start of the next work period relative to t.
//
// If t lies before or within the work hours of its own day, that day's start
// time is returned. The boolean is false when the schedule has no work days.
func (s *WorkSchedule) NextWorkStart(t time.Time) (time.Time, bool) {
	day := Weekday(t.Weekday())

	if hours, ok := s.WorkDays[day]; ok {
		if Of(t) <= hours.Start || hours.Contains(Of(t)) {
			return hours.Start.On(t), true
		}
	}

	for i := 1; i <= daysPerWeek; i++ {
		next := t.AddDate(0, 0, i)
		if hours, ok := s.WorkDays[Weekday(next.Weekday())]; ok {
			return hours.Start.On(next), true
		}
	}

	return time.Time{}, false
}
