// Package schedule is the student/booking engine: the student registry,
// the booking ledger with its slot-uniqueness rule, the agenda queries,
// and two-phase deletes.
//
// All state lives in a Book. Every operation runs under the book's mutex
// from its first check to the in-memory swap, so duplicate-name and
// slot-conflict checks cannot race their inserts. Mutations persist
// first and update memory only when the store accepted the write.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	appLog "lessoncal/internal/log"
	"lessoncal/internal/model"
	"lessoncal/internal/store"
)

const defaultConfirmTTL = 5 * time.Minute

// Book holds the student and booking collections and the store they are
// persisted to.
type Book struct {
	mu sync.Mutex

	store    store.Store
	students []model.Student
	bookings []model.Booking

	// collate.Collator is not safe for concurrent use; guarded by mu.
	collator *collate.Collator

	now        func() time.Time
	newID      func() string
	confirmTTL time.Duration
	pending    map[string]pendingDelete
}

type Option func(*Book)

// WithClock overrides time.Now for CreatedAt stamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithIDs overrides the uuid generator.
func WithIDs(newID func() string) Option {
	return func(b *Book) { b.newID = newID }
}

// WithConfirmTTL sets how long a delete confirmation token stays valid.
func WithConfirmTTL(d time.Duration) Option {
	return func(b *Book) {
		if d > 0 {
			b.confirmTTL = d
		}
	}
}

// Open loads both collections from st. Missing keys start empty. Bookings
// whose student no longer exists are dropped from memory and disappear
// from storage with the next booking write.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Book, error) {
	if st == nil {
		return nil, errors.New("schedule: nil store")
	}
	b := &Book{
		store:      st,
		collator:   collate.New(language.Japanese),
		now:        time.Now,
		newID:      uuid.NewString,
		confirmTTL: defaultConfirmTTL,
		pending:    make(map[string]pendingDelete),
	}
	for _, opt := range opts {
		opt(b)
	}

	students, err := loadCollection(ctx, st, store.StudentsKey, store.DecodeStudents)
	if err != nil {
		return nil, err
	}
	bookings, err := loadCollection(ctx, st, store.BookingsKey, store.DecodeBookings)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(students))
	for _, s := range students {
		known[s.ID] = true
	}
	kept := make([]model.Booking, 0, len(bookings))
	for _, bk := range bookings {
		if !known[bk.StudentID] {
			appLog.Warn("dropping booking of missing student", "booking_id", bk.ID, "student_id", bk.StudentID, "date", bk.Date)
			continue
		}
		kept = append(kept, bk)
	}

	b.students = students
	b.bookings = kept
	appLog.Info("schedule book opened", "students", len(students), "bookings", len(kept))
	return b, nil
}

func loadCollection[T any](ctx context.Context, st store.Store, key string, decode func([]byte) ([]T, error)) ([]T, error) {
	data, err := st.Load(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("schedule: load %s: %w", key, err)
	}
	items, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("schedule: decode %s: %w", key, err)
	}
	return items, nil
}

func (b *Book) Students() *StudentRegistry { return &StudentRegistry{b: b} }

func (b *Book) Bookings() *BookingLedger { return &BookingLedger{b: b} }

func (b *Book) Query() *ScheduleQueryService { return &ScheduleQueryService{b: b} }

// commit persists the given collections as one batch and swaps them into
// memory on success. A nil slice means "unchanged". Callers hold b.mu.
func (b *Book) commit(ctx context.Context, students []model.Student, bookings []model.Booking) error {
	now := b.now()
	entries := make([]store.Entry, 0, 2)

	if students != nil {
		data, err := store.EncodeStudents(students, now)
		if err != nil {
			return fmt.Errorf("schedule: encode students: %w", err)
		}
		entries = append(entries, store.Entry{Key: store.StudentsKey, Data: data})
	}
	if bookings != nil {
		data, err := store.EncodeBookings(bookings, now)
		if err != nil {
			return fmt.Errorf("schedule: encode bookings: %w", err)
		}
		entries = append(entries, store.Entry{Key: store.BookingsKey, Data: data})
	}
	if len(entries) == 0 {
		return nil
	}

	if err := b.store.Save(ctx, entries...); err != nil {
		appLog.Error("schedule save failed", err, "entries", len(entries))
		return fmt.Errorf("schedule: save: %w", err)
	}

	if students != nil {
		b.students = students
	}
	if bookings != nil {
		b.bookings = bookings
	}
	return nil
}

// SnapshotEntries encodes both collections under one lock so the pair is
// consistent. It returns nil when the book is empty.
func (b *Book) SnapshotEntries() ([]store.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.students) == 0 && len(b.bookings) == 0 {
		return nil, nil
	}
	now := b.now()
	students, err := store.EncodeStudents(b.students, now)
	if err != nil {
		return nil, fmt.Errorf("schedule: encode students: %w", err)
	}
	bookings, err := store.EncodeBookings(b.bookings, now)
	if err != nil {
		return nil, fmt.Errorf("schedule: encode bookings: %w", err)
	}
	return []store.Entry{
		{Key: store.StudentsKey, Data: students},
		{Key: store.BookingsKey, Data: bookings},
	}, nil
}

func (b *Book) findStudent(id string) (model.Student, bool) {
	for _, s := range b.students {
		if s.ID == id {
			return s, true
		}
	}
	return model.Student{}, false
}

func (b *Book) findBooking(id string) (model.Booking, bool) {
	for _, bk := range b.bookings {
		if bk.ID == id {
			return bk, true
		}
	}
	return model.Booking{}, false
}

// filter returns a new, never-nil slice of the items keep accepts.
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
