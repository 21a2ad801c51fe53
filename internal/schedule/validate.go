package schedule

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"lessoncal/internal/timemath"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("trimmed_required", validateTrimmedRequired)
	validate.RegisterValidation("hhmm", validateClock)
	validate.RegisterValidation("yyyymmdd", validateDate)
}

// fieldMessages maps "<json field>.<tag>" to the text shown to the user.
var fieldMessages = map[string]string{
	"name.trimmed_required": "生徒名を入力してください。",
	"weekday.required":      "曜日を選択してください。",
	"weekday.oneof":         "曜日を選択してください。",
	"startTime.required":    "開始時刻を入力してください。",
	"startTime.hhmm":        "開始時刻はHH:MM形式で入力してください。",
	"endTime.required":      "終了時刻を入力してください。",
	"endTime.hhmm":          "終了時刻はHH:MM形式で入力してください。",
	"durationMin.min":       "1コマ分数は1以上で入力してください。",
	"lessonsPerMonth.min":   "月の回数は1以上で入力してください。",
	"date.required":         "日付はYYYY-MM-DD形式で指定してください。",
	"date.yyyymmdd":         "日付はYYYY-MM-DD形式で指定してください。",
}

const fallbackMessage = "入力内容が正しくありません。"

// validateStruct runs the struct's validate tags and converts the first
// failure into a ValidationError. Fields are checked in declaration
// order, so the first failing field wins.
func validateStruct(v any) *ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return &ValidationError{Message: fallbackMessage}
	}
	return fieldError(fields[0].Field(), fields[0].Tag())
}

func fieldError(field, tag string) *ValidationError {
	msg, ok := fieldMessages[field+"."+tag]
	if !ok {
		msg = fallbackMessage
	}
	return &ValidationError{Field: field, Message: msg}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validateTrimmedRequired(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timemath.ParseClock(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := timemath.ParseDate(fl.Field().String())
	return err == nil
}
