package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/crucial707/ledger/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of in and returns a *models.ValidationError.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &models.ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "invalid"
	}
}

// mergeFields records msg for field on dst, allocating dst when needed.
func mergeFields(dst *models.ValidationError, field, msg string) *models.ValidationError {
	if dst == nil {
		dst = &models.ValidationError{Fields: map[string]string{}}
	}
	dst.Fields[field] = msg
	return dst
}

// maxAmountChars bounds the textual amount before it is parsed.
const maxAmountChars = 64

// parseAmount accepts a JSON number or a numeric string. On failure it returns the
// message for the amount field.
func parseAmount(raw json.RawMessage) (decimal.Decimal, string) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Decimal{}, "required"
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Decimal{}, "must be a number"
		}
		s = strings.TrimSpace(str)
	}
	if len(s) > maxAmountChars {
		return decimal.Decimal{}, "out of range"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, "must be a number"
	}
	return d, ""
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (midnight UTC).
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
