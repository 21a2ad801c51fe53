package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "lessoncal/internal/log"
)

// DeleteKind names what a confirmation token deletes.
type DeleteKind string

const (
	DeleteStudent DeleteKind = "student"
	DeleteBooking DeleteKind = "booking"
)

// Confirmation is the first half of a two-phase delete. The caller shows
// Message to the user and then calls ConfirmDelete or CancelDelete.
type Confirmation struct {
	Token    string     `json:"token"`
	Kind     DeleteKind `json:"kind"`
	TargetID string     `json:"targetId"`
	Message  string     `json:"message"`

	// BookingCount is the number of bookings a student delete also removes.
	BookingCount int       `json:"bookingCount"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type pendingDelete struct {
	kind      DeleteKind
	targetID  string
	expiresAt time.Time
}

// RequestDelete checks that the target exists and issues a token.
func (b *Book) RequestDelete(kind DeleteKind, id string) (Confirmation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := Confirmation{Kind: kind, TargetID: id}
	switch kind {
	case DeleteStudent:
		if _, ok := b.findStudent(id); !ok {
			return Confirmation{}, fmt.Errorf("%w: student %s", ErrNotFound, id)
		}
		for _, bk := range b.bookings {
			if bk.StudentID == id {
				c.BookingCount++
			}
		}
		if c.BookingCount > 0 {
			c.Message = "この生徒の予約も削除されます。本当に削除しますか？"
		} else {
			c.Message = "この生徒を削除しますか？"
		}
	case DeleteBooking:
		if _, ok := b.findBooking(id); !ok {
			return Confirmation{}, fmt.Errorf("%w: booking %s", ErrNotFound, id)
		}
		c.Message = "この予約を削除しますか？"
	default:
		return Confirmation{}, &ValidationError{Field: "kind", Message: "削除対象が不正です。"}
	}

	now := b.now()
	b.prunePendingLocked(now)

	c.Token = b.newID()
	c.ExpiresAt = now.Add(b.confirmTTL)
	b.pending[c.Token] = pendingDelete{kind: kind, targetID: id, expiresAt: c.ExpiresAt}
	return c, nil
}

// ConfirmDelete performs the delete a token was issued for. Unknown,
// used, and expired tokens fail with ErrNotFound. A token is consumed only
// when the delete succeeds or its target is already gone, so a failed
// save can be retried with the same token.
func (b *Book) ConfirmDelete(ctx context.Context, token string) (Confirmation, error) {
	b.mu.Lock()
	p, ok := b.pending[token]
	if ok && !b.now().Before(p.expiresAt) {
		delete(b.pending, token)
		ok = false
	}
	b.mu.Unlock()

	if !ok {
		return Confirmation{}, fmt.Errorf("%w: confirmation %s", ErrNotFound, token)
	}

	var err error
	switch p.kind {
	case DeleteStudent:
		err = b.Students().Delete(ctx, p.targetID)
	case DeleteBooking:
		err = b.Bookings().Delete(ctx, p.targetID)
	}

	if err == nil || errors.Is(err, ErrNotFound) {
		b.mu.Lock()
		delete(b.pending, token)
		b.mu.Unlock()
	}
	if err != nil {
		return Confirmation{}, err
	}
	return Confirmation{Token: token, Kind: p.kind, TargetID: p.targetID}, nil
}

// CancelDelete drops a pending token. Declining is not an error; it
// reports whether a pending request was dropped.
func (b *Book) CancelDelete(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[token]
	if !ok {
		return false
	}
	delete(b.pending, token)
	appLog.Debug("delete cancelled", "kind", string(p.kind), "target_id", p.targetID)
	return true
}

func (b *Book) prunePendingLocked(now time.Time) {
	for token, p := range b.pending {
		if !now.Before(p.expiresAt) {
			delete(b.pending, token)
		}
	}
}
