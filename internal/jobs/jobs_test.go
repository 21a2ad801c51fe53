package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lessoncal/internal/config"
	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/schedule"
	"lessoncal/internal/store"
)

func newRunner(t *testing.T, keep int) (*Runner, *schedule.Book, *store.Memory) {
	t.Helper()
	appLog.Use(zap.NewNop())

	mem := store.NewMemory()
	book, err := schedule.Open(context.Background(), mem)
	require.NoError(t, err)

	r, err := New(mem, book, config.JobsConfig{Snapshot: "0 3 * * *", Digest: "0 7 * * *", KeepSnapshots: keep})
	require.NoError(t, err)
	return r, book, mem
}

func TestSnapshotCopiesAndPrunes(t *testing.T) {
	ctx := context.Background()
	r, book, mem := newRunner(t, 2)

	prefix, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, prefix, "empty book has nothing to snapshot")

	aoi, err := book.Students().Create(ctx, model.StudentForm{Name: "Aoi", Weekday: "月", StartTime: "16:00", DurationMin: 60, LessonsPerMonth: 4})
	require.NoError(t, err)
	_, err = book.Bookings().BookStudent(ctx, aoi.ID, "2024-06-03", "")
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	var prefixes []string
	for i := 0; i < 3; i++ {
		at := base.AddDate(0, 0, i)
		r.now = func() time.Time { return at }
		p, err := r.Snapshot(ctx)
		require.NoError(t, err)
		prefixes = append(prefixes, p)
	}
	assert.Equal(t, "snapshots/20240601T030000/", prefixes[0])

	keys, err := mem.List(ctx, snapshotPrefix)
	require.NoError(t, err)
	// Two newest snapshots kept.
	assert.Equal(t, []string{
		prefixes[1] + store.BookingsKey,
		prefixes[1] + store.StudentsKey,
		prefixes[2] + store.BookingsKey,
		prefixes[2] + store.StudentsKey,
	}, keys)

	data, err := mem.Load(ctx, prefixes[2]+store.StudentsKey)
	require.NoError(t, err)
	students, err := store.DecodeStudents(data)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, aoi.ID, students[0].ID)

	data, err = mem.Load(ctx, prefixes[2]+store.BookingsKey)
	require.NoError(t, err)
	bookings, err := store.DecodeBookings(data)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, aoi.ID, bookings[0].StudentID)
}

func TestDigestUsesToday(t *testing.T) {
	ctx := context.Background()
	r, book, _ := newRunner(t, 1)

	s, err := book.Students().Create(ctx, model.StudentForm{Name: "Aoi", Weekday: "月", StartTime: "16:00", DurationMin: 60, LessonsPerMonth: 4})
	require.NoError(t, err)
	_, err = book.Bookings().BookStudent(ctx, s.ID, "2024-06-03", "")
	require.NoError(t, err)

	r.now = func() time.Time { return time.Date(2024, 6, 3, 7, 0, 0, 0, time.Local) }
	agenda := r.Digest()
	require.Len(t, agenda, 1)
	assert.Equal(t, "Aoi", agenda[0].StudentName)

	r.now = func() time.Time { return time.Date(2024, 6, 4, 7, 0, 0, 0, time.Local) }
	assert.Empty(t, r.Digest())
}

func TestNewRejectsBadSpec(t *testing.T) {
	appLog.Use(zap.NewNop())
	mem := store.NewMemory()
	book, err := schedule.Open(context.Background(), mem)
	require.NoError(t, err)

	_, err = New(mem, book, config.JobsConfig{Snapshot: "every day"})
	assert.Error(t, err)

	r, err := New(mem, book, config.JobsConfig{})
	require.NoError(t, err)
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}
