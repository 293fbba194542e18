package dateformat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Unsupported(t *testing.T) {
	for _, f := range []string{"", "[unterminated", "[only literal]", "ss.SSSSSSSSSS"} {
		_, err := Compile(f)
		assert.ErrorIs(t, err, ErrUnsupported, f)
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2020, 1, 5, 3, 7, 9, 123456789, time.UTC)
	pm := time.Date(2021, 11, 30, 15, 4, 0, 0, time.FixedZone("", -5*3600))

	tests := []struct {
		format string
		t      time.Time
		want   string
	}{
		{"YYYY-MM-DD", ts, "2020-01-05"},
		{"YY M D", ts, "20 1 5"},
		{"H h DDD", ts, "3 3 5"},
		{"HH hh DDDD", ts, "03 03 005"},
		{"DDD", pm, "334"},
		{"MMMM D, YYYY", ts, "January 5, 2020"},
		{"ddd, DD MMM YY", ts, "Sun, 05 Jan 20"},
		{"dddd", ts, "Sunday"},
		{"h:mm A", pm, "3:04 PM"},
		{"h:mm a", ts, "3:07 am"},
		{"mm:ss.SSS", ts, "07:09.123"},
		{"m s S", ts, "7 9 1"},
		{"YYYY-MM-DDTHH:mm ZZ", pm, "2021-11-30T15:04 -05:00"},
		{"HHmm Z", pm, "1504 -0500"},
		{"[Monday] dddd", ts, "Monday Sunday"},
		{"[PM] A [YYYY]", pm, "PM PM YYYY"},
		{"[Day] D", ts, "Day 5"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			l, err := Compile(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Format(tt.t))
			assert.Equal(t, tt.format, l.String())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		format, value string
		want          time.Time
	}{
		{"YYYY-MM-DD", "2020-05-01", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"D.M.YYYY H:mm", "5.7.2021 9:05", time.Date(2021, 7, 5, 9, 5, 0, 0, time.UTC)},
		{"H", "23", time.Date(0, 1, 1, 23, 0, 0, 0, time.UTC)},
		{"YYYY DDD", "2020 5", time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"YYYY DDD", "2020 60", time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"YYYY DDDD", "2020 005", time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"MMMM D, YYYY", "january 5, 2020", time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"h:mm A", "3:04 pm", time.Date(0, 1, 1, 15, 4, 0, 0, time.UTC)},
		{"h:mm a", "12:30 AM", time.Date(0, 1, 1, 0, 30, 0, 0, time.UTC)},
		{"HH:mm:ss.SSS", "10:11:12.345", time.Date(0, 1, 1, 10, 11, 12, 345000000, time.UTC)},
		{"[Monday] YYYY-MM-DD", "Monday 2020-01-05", time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"YYYY-MM-DD [at] HH:mm", "2020-01-05 at 03:07", time.Date(2020, 1, 5, 3, 7, 0, 0, time.UTC)},
		{"YYYY[PM]MM", "2020PM07", time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.value, func(t *testing.T) {
			got, err := Parse(tt.format, tt.value)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParse_Zone(t *testing.T) {
	got, err := Parse("YYYY-MM-DD HH:mm ZZ", "2020-01-05 10:00 +02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 5, 8, 0, 0, 0, time.UTC), got.UTC())

	got, err = Parse("YYYY-MM-DD HH:mm Z", "2020-01-05 10:00 -0130")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 5, 11, 30, 0, 0, time.UTC), got.UTC())
}

func TestParse_Mismatch(t *testing.T) {
	tests := []struct {
		name, format, value string
	}{
		{"not a date", "YYYY-MM-DD", "not a date"},
		{"longer than format", "YYYY", "2020-05-01"},
		{"padded token needs full width", "YYYY-MM-DD", "2020-5-1"},
		{"padded hour", "HH:mm", "3:07"},
		{"padded day of year", "YYYY DDDD", "2020 5"},
		{"day out of range", "YYYY-MM-DD", "2020-02-30"},
		{"day of year out of range", "YYYY DDD", "2021 366"},
		{"missing literal", "YYYY-MM-DD [at] HH:mm", "2020-01-05 03:07"},
		{"unknown month", "MMMM YYYY", "Smarch 2020"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.format, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMismatch))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	l, err := Compile("dddd, MMMM D YYYY [at] h:mm:ss A")
	require.NoError(t, err)

	in := time.Date(2024, 2, 29, 23, 59, 1, 0, time.UTC)
	s := l.Format(in)
	assert.Equal(t, "Thursday, February 29 2024 at 11:59:01 PM", s)

	out, err := l.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
