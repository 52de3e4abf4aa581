package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.January, day, hour, minute, 0, 0, time.UTC)
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	day, err := ParseWeekday(" FRIDAY ")
	require.NoError(t, err)
	assert.Equal(t, Weekday(time.Friday), day)

	var w Weekday
	require.NoError(t, w.UnmarshalText([]byte("monday")))
	assert.Equal(t, "Monday", w.String())

	_, err = ParseWeekday("someday")
	require.ErrorIs(t, err, ErrInvalidWeekday)
}

func TestTimeOfDay(t *testing.T) {
	t.Parallel()

	d, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(9, 30, 0), d)
	assert.Equal(t, "09:30", d.String())

	d, err = ParseTimeOfDay("17:05:42")
	require.NoError(t, err)
	assert.Equal(t, "17:05:42", d.String())

	_, err = ParseTimeOfDay("25:00")
	require.ErrorIs(t, err, ErrInvalidTimeOfDay)

	assert.Equal(t, at(3, 9, 30), Clock(9, 30, 0).On(at(3, 22, 0)))
	assert.Equal(t, Clock(22, 15, 0), Of(at(3, 22, 15)))
}

func TestTimePeriod(t *testing.T) {
	t.Parallel()

	day := TimePeriod{Start: Clock(9, 0, 0), End: Clock(17, 0, 0)}
	assert.True(t, day.Contains(Clock(9, 0, 0)))
	assert.True(t, day.Contains(Clock(16, 59, 59)))
	assert.False(t, day.Contains(Clock(17, 0, 0)))

	night := TimePeriod{Start: Clock(22, 0, 0), End: Clock(2, 0, 0)}
	assert.True(t, night.Contains(Clock(23, 0, 0)))
	assert.True(t, night.Contains(Clock(1, 0, 0)))
	assert.False(t, night.Contains(Clock(12, 0, 0)))
}

func TestWorkHoursValidate(t *testing.T) {
	t.Parallel()

	_, err := NewWorkHours(Clock(9, 0, 0), Clock(17, 0, 0))
	require.NoError(t, err)

	_, err = NewWorkHours(Clock(17, 0, 0), Clock(9, 0, 0))
	require.ErrorIs(t, err, ErrInvalidWorkHours)

	_, err = NewWorkHours(Clock(9, 0, 0), Clock(25, 0, 0))
	require.ErrorIs(t, err, ErrInvalidTimeOfDay)

	s := &WorkSchedule{WorkDays: map[Weekday]WorkHours{
		Weekday(time.Monday): {Start: Clock(12, 0, 0), End: Clock(8, 0, 0)},
	}}
	require.ErrorIs(t, s.Validate(), ErrInvalidWorkHours)
}

func TestWorkSchedule(t *testing.T) {
	t.Parallel()

	s := &WorkSchedule{WorkDays: map[Weekday]WorkHours{
		Weekday(time.Monday):    {Start: Clock(9, 0, 0), End: Clock(17, 0, 0)},
		Weekday(time.Wednesday): {Start: Clock(10, 0, 0), End: Clock(12, 0, 0)},
	}}
	require.NoError(t, s.Validate())

	assert.True(t, s.IsWorkDay(Weekday(time.Monday)))
	assert.False(t, s.IsWorkDay(Weekday(time.Tuesday)))

	assert.True(t, s.IsWorkTime(at(1, 10, 0)))
	assert.False(t, s.IsWorkTime(at(1, 18, 0)))
	assert.False(t, s.IsWorkTime(at(2, 10, 0)))

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "before hours", now: at(1, 7, 0), want: at(1, 9, 0)},
		{name: "within hours", now: at(1, 10, 0), want: at(1, 9, 0)},
		{name: "after hours", now: at(1, 18, 0), want: at(3, 10, 0)},
		{name: "day off", now: at(2, 10, 0), want: at(3, 10, 0)},
		{name: "wraps the week", now: at(3, 13, 0), want: at(8, 9, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := s.NextWorkStart(tt.now)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := (&WorkSchedule{}).NextWorkStart(at(1, 10, 0))
	assert.False(t, ok)
}

func TestApproximateDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3*time.Second, Exactly(3*time.Second).Value(nil))

	a, err := Between(time.Second, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, a.Value(func() float64 { return 0.5 }))
	assert.Equal(t, time.Second, a.Value(func() float64 { return 0 }))

	for range 100 {
		v := a.Value(nil)
		assert.GreaterOrEqual(t, v, time.Second)
		assert.LessOrEqual(t, v, 3*time.Second)
	}

	_, err = Between(3*time.Second, time.Second)
	require.ErrorIs(t, err, ErrInvalidBounds)
}
