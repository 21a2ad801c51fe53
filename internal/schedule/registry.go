package schedule

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
)

// StudentRegistry owns the student collection.
type StudentRegistry struct {
	b *Book
}

// Validate checks a form and returns the first failing rule, or nil.
func (r *StudentRegistry) Validate(form model.StudentForm) *ValidationError {
	return validateStruct(form)
}

// Create validates the form and registers a new student. It fails with
// ErrDuplicateName when another student already has the trimmed name.
func (r *StudentRegistry) Create(ctx context.Context, form model.StudentForm) (model.Student, error) {
	if ve := r.Validate(form); ve != nil {
		return model.Student{}, ve
	}
	name := strings.TrimSpace(form.Name)

	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.students {
		if strings.TrimSpace(s.Name) == name {
			return model.Student{}, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}

	student := model.Student{
		ID:              b.newID(),
		Name:            name,
		Weekday:         form.Weekday,
		StartTime:       form.StartTime,
		DurationMin:     form.DurationMin,
		LessonsPerMonth: form.LessonsPerMonth,
		CreatedAt:       b.now(),
	}

	next := append(slices.Clone(b.students), student)
	if err := b.commit(ctx, next, nil); err != nil {
		return model.Student{}, err
	}

	appLog.Info("student created", "student_id", student.ID, "name", student.Name, "weekday", student.Weekday)
	return student, nil
}

// List returns all students ordered by name in Japanese collation order.
func (r *StudentRegistry) List() []model.Student {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()

	out := slices.Clone(b.students)
	sort.SliceStable(out, func(i, j int) bool {
		if c := b.collator.CompareString(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *StudentRegistry) Get(id string) (model.Student, error) {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.findStudent(id)
	if !ok {
		return model.Student{}, fmt.Errorf("%w: student %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete removes the student and every booking referencing it. Both
// collections are written in one batch.
func (r *StudentRegistry) Delete(ctx context.Context, id string) error {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.findStudent(id); !ok {
		return fmt.Errorf("%w: student %s", ErrNotFound, id)
	}

	students := filter(b.students, func(s model.Student) bool { return s.ID != id })
	bookings := filter(b.bookings, func(bk model.Booking) bool { return bk.StudentID != id })
	removed := len(b.bookings) - len(bookings)

	if err := b.commit(ctx, students, bookings); err != nil {
		return err
	}

	appLog.Info("student deleted", "student_id", id, "bookings_removed", removed)
	return nil
}
