package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateName  = errors.New("schedule: a student with this name already exists")
	ErrConflict       = errors.New("schedule: slot already booked")
	ErrUnknownStudent = errors.New("schedule: unknown student")
	ErrNotFound       = errors.New("schedule: not found")
)

// ValidationError reports the first invalid field of a form or request.
// Message is the text shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: invalid %s: %s", e.Field, e.Message)
}

// Message returns the user-facing text for an error returned by this
// package. Unrecognised errors get a generic message.
func Message(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrDuplicateName):
		return "同名の生徒が既に登録されています。"
	case errors.Is(err, ErrConflict):
		return "同じ日時に既に予約があります。"
	case errors.Is(err, ErrUnknownStudent):
		return "生徒情報が見つかりません。"
	case errors.Is(err, ErrNotFound):
		return "対象が見つかりません。"
	default:
		return "保存に失敗しました。"
	}
}
