package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countCells(cells []Cell) (blanks, days int) {
	for _, c := range cells {
		if c.Blank {
			blanks++
		} else {
			days++
		}
	}
	return blanks, days
}

func TestLayoutFebruaryLeapYear(t *testing.T) {
	// 1 Feb 2024 is a Thursday.
	cells := Layout(2024, time.February, time.Sunday)
	blanks, days := countCells(cells)
	assert.Equal(t, 4, blanks)
	assert.Equal(t, 29, days)

	for i := 0; i < 4; i++ {
		assert.True(t, cells[i].Blank)
	}
	assert.Equal(t, 1, cells[4].Day)
	assert.Equal(t, 29, cells[len(cells)-1].Day)

	_, days = countCells(Layout(2023, time.February, time.Sunday))
	assert.Equal(t, 28, days)
}

func TestLayoutWeekStart(t *testing.T) {
	// 1 Sep 2024 is a Sunday.
	blanks, _ := countCells(Layout(2024, time.September, time.Sunday))
	assert.Zero(t, blanks)
	blanks, _ = countCells(Layout(2024, time.September, time.Monday))
	assert.Equal(t, 6, blanks)

	// 1 Jun 2024 is a Saturday.
	blanks, days := countCells(Layout(2024, time.June, time.Sunday))
	assert.Equal(t, 6, blanks)
	assert.Equal(t, 30, days)
}

func TestOverlay(t *testing.T) {
	cells := Layout(2024, time.June, time.Sunday)
	booked := map[string]bool{"2024-06-03": true}
	views := Overlay(2024, time.June, cells, func(d string) bool { return booked[d] }, "2024-06-10", "2024-06-03")
	require.Len(t, views, len(cells))

	assert.True(t, views[0].Blank)
	assert.Empty(t, views[0].Date)

	third := views[6+2]
	assert.Equal(t, "2024-06-03", third.Date)
	assert.True(t, third.HasBooking)
	assert.True(t, third.Today)
	assert.False(t, third.Selected)

	tenth := views[6+9]
	assert.True(t, tenth.Selected)
	assert.False(t, tenth.HasBooking)
}

func TestShiftAndLabels(t *testing.T) {
	y, m := Shift(2024, time.January, -1)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)

	y, m = Shift(2024, time.December, 1)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.January, m)

	assert.Equal(t, "2024年6月", Label(2024, time.June))
	assert.Equal(t, "2024-06-03", DateKey(2024, time.June, 3))

	labels := [7]string{"日", "月", "火", "水", "木", "金", "土"}
	assert.Equal(t, []string{"月", "火", "水", "木", "金", "土", "日"}, WeekdayHeaders(labels, time.Monday))
}
