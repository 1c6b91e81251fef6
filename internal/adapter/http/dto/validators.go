package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"settlement-core/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]+$`)
	currencyRe   = regexp.MustCompile(`^[a-zA-Z]{3}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("currency", validateCurrency)
		_ = v.RegisterValidation("payment_purpose", validatePaymentPurpose)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, dot and colon.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateCurrency accepts a three-letter ISO 4217 code in any case.
func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

func validatePaymentPurpose(fl validator.FieldLevel) bool {
	switch domain.PurposeKind(fl.Field().String()) {
	case domain.PurposeRefill, domain.PurposePurchase:
		return true
	}
	return false
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer, descending into nested
// structs and slices of structs.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		sanitizeValue(f)
	}
}

func sanitizeValue(f reflect.Value) {
	switch f.Kind() {
	case reflect.String:
		f.SetString(sanitize(f.String()))
	case reflect.Struct:
		sanitizeFields(f)
	case reflect.Slice:
		for i := 0; i < f.Len(); i++ {
			sanitizeValue(f.Index(i))
		}
	case reflect.Ptr:
		if f.IsNil() {
			return
		}
		sanitizeValue(f.Elem())
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// IsSafeID reports whether s is usable as an account, order or reference ID.
func IsSafeID(s string) bool {
	return len(s) <= 255 && safeStringRe.MatchString(s)
}
