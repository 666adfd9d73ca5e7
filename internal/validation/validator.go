// Package validation はgo-playground/validatorによる入力検証を提供する。
// 検証エラーはmodel.APIError（VALIDATION_ERROR）に変換して返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arbaazshaikh08/job-app/internal/model"
)

// Validator はvalidator.Validateのラッパー。並行利用しても安全。
type Validator struct {
	validate *validator.Validate
}

// New はValidatorを生成する。
// エラーメッセージのフィールド名にはjsonタグの名前を使う。
// 独自タグ notblank、jobstatus、worktype を登録する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "jobstatus", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || model.JobStatus(s).Valid()
	})
	mustRegister(v, "worktype", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || model.WorkType(s).Valid()
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register validation %q: %v", tag, err))
	}
}

// Struct は構造体のvalidateタグを検証する。
// 違反がある場合は全ての違反をまとめたValidationErrorを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return model.NewValidationError(strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "jobstatus":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), joinValues(model.JobStatuses))
	case "worktype":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), joinValues(model.WorkTypes))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
