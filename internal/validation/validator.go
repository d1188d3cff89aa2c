// Package validation holds the per-field predicates of the resume form and the photo upload gate.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"resume-builder/internal/resumes"
)

// Kind is the declared format of a field.
type Kind int

const (
	KindFree Kind = iota
	KindRequired
	KindEmail
	KindPhone
	KindURLList
	KindNumeric
)

const (
	MsgRequired = "This field is required"
	MsgEmail    = "Please enter a valid email address"
	MsgPhone    = "Phone must be exactly 10 digits"
	MsgLinks    = "Links must start with http:// or https://"
	MsgNumeric  = "Must be a non-negative number"
)

// Result is the outcome of one check. Message is empty when Valid.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

var (
	validate  = validator.New()
	urlScheme = regexp.MustCompile(`(?i)^https?://`)
	// Decimal literal as a number input accepts it, sign excluded.
	decimal = regexp.MustCompile(`^(\d+(\.\d+)?|\.\d+)([eE][-+]?\d+)?$`)
)

func ok() Result { return Result{Valid: true} }

func fail(msg string) Result { return Result{Message: msg} }

// Check applies kind to value. Format rules only run on non-empty values; required adds the emptiness rule.
func Check(kind Kind, required bool, value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required || kind == KindRequired {
			return fail(MsgRequired)
		}
		return ok()
	}

	switch kind {
	case KindEmail:
		if validate.Var(trimmed, "email") != nil {
			return fail(MsgEmail)
		}
	case KindPhone:
		// Surrounding whitespace counts against the ten digits.
		if validate.Var(value, "len=10,number") != nil {
			return fail(MsgPhone)
		}
	case KindURLList:
		for _, entry := range resumes.SplitCSV(trimmed) {
			if !urlScheme.MatchString(entry) {
				return fail(MsgLinks)
			}
		}
	case KindNumeric:
		if !nonNegative(trimmed) {
			return fail(MsgNumeric)
		}
	}
	return ok()
}

func nonNegative(s string) bool {
	if !decimal.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v >= 0 && !math.IsInf(v, 0)
}

// KindFor returns the format kind of a form field.
func KindFor(field resumes.Field) Kind {
	switch field {
	case resumes.FieldEmail:
		return KindEmail
	case resumes.FieldPhone:
		return KindPhone
	case resumes.FieldLinks:
		return KindURLList
	}
	if IsRequired(field) {
		return KindRequired
	}
	return KindFree
}

// IsRequired reports whether field must be non-empty on submission.
func IsRequired(field resumes.Field) bool {
	for _, f := range resumes.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

// Field validates value against the fixed schema entry for field.
func Field(field resumes.Field, value string) Result {
	return Check(KindFor(field), IsRequired(field), value)
}

// Years validates the years value of an experience entry.
func Years(value string) Result {
	return Check(KindNumeric, false, value)
}
