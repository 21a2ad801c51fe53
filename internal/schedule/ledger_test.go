package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessoncal/internal/model"
)

func TestCreateRejectsSameSlot(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))
	ben := mustStudent(t, b, form("Ben", "月", "16:00", 30, 4))

	first, err := b.Bookings().Create(ctx, BookingRequest{StudentID: aoi.ID, Date: "2024-06-03", StartTime: "16:00", EndTime: "17:00"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, first.Status)

	_, err = b.Bookings().Create(ctx, BookingRequest{StudentID: ben.ID, Date: "2024-06-03", StartTime: "16:00", EndTime: "16:30"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := b.Bookings().Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, 1, b.Bookings().Count())
}

func TestCreateAllowsOverlapWithDifferentStart(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))
	ben := mustStudent(t, b, form("Ben", "月", "16:01", 60, 4))

	_, err := b.Bookings().BookStudent(ctx, aoi.ID, "2024-06-03", "")
	require.NoError(t, err)
	_, err = b.Bookings().BookStudent(ctx, ben.ID, "2024-06-03", "")
	require.NoError(t, err)
	assert.Len(t, b.Query().AgendaFor("2024-06-03"), 2)
}

func TestCreateChecksConflictBeforeStudent(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))
	_, err := b.Bookings().BookStudent(ctx, aoi.ID, "2024-06-03", "")
	require.NoError(t, err)

	_, err = b.Bookings().Create(ctx, BookingRequest{StudentID: "nobody", Date: "2024-06-03", StartTime: "16:00", EndTime: "17:00"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = b.Bookings().Create(ctx, BookingRequest{StudentID: "nobody", Date: "2024-06-04", StartTime: "16:00", EndTime: "17:00"})
	assert.ErrorIs(t, err, ErrUnknownStudent)
}

func TestCreateValidatesStrings(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))

	cases := []struct {
		req   BookingRequest
		field string
	}{
		{BookingRequest{StudentID: aoi.ID, Date: "2024/06/03", StartTime: "16:00", EndTime: "17:00"}, "date"},
		{BookingRequest{StudentID: aoi.ID, Date: "", StartTime: "16:00", EndTime: "17:00"}, "date"},
		{BookingRequest{StudentID: aoi.ID, Date: "2024-06-03", StartTime: "16", EndTime: "17:00"}, "startTime"},
		{BookingRequest{StudentID: aoi.ID, Date: "2024-06-03", StartTime: "16:00", EndTime: "25:00"}, "endTime"},
	}
	for _, tc := range cases {
		_, err := b.Bookings().Create(ctx, tc.req)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "%+v", tc.req)
		assert.Equal(t, tc.field, ve.Field)
		assert.NotEqual(t, fallbackMessage, ve.Message)
	}
	assert.Zero(t, b.Bookings().Count())
}

func TestBookStudentComputesEndTime(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	late := mustStudent(t, b, form("Late", "土", "23:50", 30, 1))

	bk, err := b.Bookings().BookStudent(ctx, late.ID, "2024-06-08", "")
	require.NoError(t, err)
	assert.Equal(t, "23:50", bk.StartTime)
	assert.Equal(t, "00:20", bk.EndTime)

	bk, err = b.Bookings().BookStudent(ctx, late.ID, "2024-06-08", "10:15")
	require.NoError(t, err)
	assert.Equal(t, "10:45", bk.EndTime)

	_, err = b.Bookings().BookStudent(ctx, "nobody", "2024-06-08", "")
	assert.ErrorIs(t, err, ErrUnknownStudent)
}

func TestByDateSortedAndFiltered(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))

	for _, slot := range []struct{ date, start string }{
		{"2024-06-03", "18:00"},
		{"2024-06-03", "09:30"},
		{"2024-06-04", "08:00"},
		{"2024-06-03", "16:00"},
	} {
		_, err := b.Bookings().BookStudent(ctx, aoi.ID, slot.date, slot.start)
		require.NoError(t, err)
	}

	var starts []string
	for e := range b.Bookings().ByDate("2024-06-03") {
		assert.Equal(t, "2024-06-03", e.Date)
		starts = append(starts, e.StartTime)
	}
	assert.Equal(t, []string{"09:30", "16:00", "18:00"}, starts)

	assert.True(t, b.Bookings().HasAny("2024-06-04"))
	assert.False(t, b.Bookings().HasAny("2024-06-05"))

	all := b.Bookings().All()
	require.Len(t, all, 4)
	assert.Equal(t, "2024-06-04", all[3].Date)
}

func TestDeleteBooking(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)
	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))
	bk, err := b.Bookings().BookStudent(ctx, aoi.ID, "2024-06-03", "")
	require.NoError(t, err)

	require.NoError(t, b.Bookings().Delete(ctx, bk.ID))
	assert.False(t, b.Bookings().HasAny("2024-06-03"))
	assert.ErrorIs(t, b.Bookings().Delete(ctx, bk.ID), ErrNotFound)

	// The slot is free again.
	_, err = b.Bookings().BookStudent(ctx, aoi.ID, "2024-06-03", "")
	assert.NoError(t, err)
}
