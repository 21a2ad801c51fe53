package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessoncal/internal/model"
)

func TestValidateOrder(t *testing.T) {
	b, _, _ := newTestBook(t)
	r := b.Students()

	cases := []struct {
		form    model.StudentForm
		field   string
		message string
	}{
		{form("  ", "", "", 0, 0), "name", "生徒名を入力してください。"},
		{form("Aoi", "", "", 0, 0), "weekday", "曜日を選択してください。"},
		{form("Aoi", "Mon", "", 0, 0), "weekday", "曜日を選択してください。"},
		{form("Aoi", "月", "", 0, 0), "startTime", "開始時刻を入力してください。"},
		{form("Aoi", "月", "4pm", 0, 0), "startTime", "開始時刻はHH:MM形式で入力してください。"},
		{form("Aoi", "月", "+4:00", 60, 4), "startTime", "開始時刻はHH:MM形式で入力してください。"},
		{form("Aoi", "月", "16:00", 0, 0), "durationMin", "1コマ分数は1以上で入力してください。"},
		{form("Aoi", "月", "16:00", -5, 4), "durationMin", "1コマ分数は1以上で入力してください。"},
		{form("Aoi", "月", "16:00", 60, 0), "lessonsPerMonth", "月の回数は1以上で入力してください。"},
	}
	for _, tc := range cases {
		ve := r.Validate(tc.form)
		require.NotNil(t, ve, "%+v", tc.form)
		assert.Equal(t, tc.field, ve.Field)
		assert.Equal(t, tc.message, ve.Message)
	}

	assert.Nil(t, r.Validate(form("Aoi", "月", "16:00", 60, 4)))
}

func TestCreateAndListSorted(t *testing.T) {
	b, _, _ := newTestBook(t)
	for _, name := range []string{"Chika", "Aoi", "Ben"} {
		mustStudent(t, b, form(name, "月", "16:00", 60, 4))
	}

	var names []string
	for _, s := range b.Students().List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Aoi", "Ben", "Chika"}, names)
}

func TestListUsesJapaneseCollation(t *testing.T) {
	b, _, _ := newTestBook(t)
	for _, name := range []string{"さくら", "あおい", "かな"} {
		mustStudent(t, b, form(name, "水", "10:00", 30, 2))
	}

	var names []string
	for _, s := range b.Students().List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"あおい", "かな", "さくら"}, names)
}

func TestCreateTrimsAndRejectsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)

	s := mustStudent(t, b, form("  Aoi ", "月", "16:00", 60, 4))
	assert.Equal(t, "Aoi", s.Name)
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	_, err := b.Students().Create(ctx, form("Aoi", "火", "18:00", 30, 2))
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = b.Students().Create(ctx, form("\tAoi  ", "火", "18:00", 30, 2))
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Case-sensitive: a different case is a different name.
	_, err = b.Students().Create(ctx, form("aoi", "火", "18:00", 30, 2))
	assert.NoError(t, err)

	assert.Len(t, b.Students().List(), 2)
}

func TestCreateReturnsValidationError(t *testing.T) {
	b, _, _ := newTestBook(t)
	_, err := b.Students().Create(context.Background(), form("Aoi", "月", "16:00", 0, 4))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "durationMin", ve.Field)
	assert.Empty(t, b.Students().List())
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	b, _, _ := newTestBook(t)

	aoi := mustStudent(t, b, form("Aoi", "月", "16:00", 60, 4))
	ben := mustStudent(t, b, form("Ben", "月", "18:00", 45, 4))

	for _, d := range []string{"2024-06-03", "2024-06-10"} {
		_, err := b.Bookings().BookStudent(ctx, aoi.ID, d, "")
		require.NoError(t, err)
		_, err = b.Bookings().BookStudent(ctx, ben.ID, d, "")
		require.NoError(t, err)
	}

	require.NoError(t, b.Students().Delete(ctx, aoi.ID))

	for _, d := range []string{"2024-06-03", "2024-06-10"} {
		agenda := b.Query().AgendaFor(d)
		require.Len(t, agenda, 1)
		assert.Equal(t, ben.ID, agenda[0].StudentID)
	}
	_, err := b.Students().Get(aoi.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, b.Students().Delete(ctx, aoi.ID), ErrNotFound)
}
