package editor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind selects the rule a field is validated with.
type Kind int

const (
	// Text must be non-blank.
	Text Kind = iota
	// Letters must be non-blank and hold only letters (accented Latin included) and whitespace.
	Letters
	// Number must parse to a number >= 0.
	Number
	// Integer must parse to a whole number >= 0.
	Integer
)

var lettersOnly = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑüÜ\s]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("letters", func(fl validator.FieldLevel) bool {
		return lettersOnly.MatchString(fl.Field().String())
	})
	return v
}

// FieldSpec declares one editable field.
type FieldSpec struct {
	Name  string
	Label string
	Kind  Kind
}

func (f FieldSpec) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func (f FieldSpec) zero() string {
	if f.Kind == Number || f.Kind == Integer {
		return "0"
	}
	return ""
}

// check validates raw and returns the normalized value or a user-facing message.
func (f FieldSpec) check(raw string) (any, string) {
	s := strings.TrimSpace(raw)
	if err := validate.Var(s, "required"); err != nil {
		return nil, fmt.Sprintf("%s cannot be empty", f.label())
	}

	switch f.Kind {
	case Letters:
		if err := validate.Var(s, "letters"); err != nil {
			return nil, fmt.Sprintf("%s may only contain letters and spaces", f.label())
		}
		return s, ""
	case Number, Integer:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Sprintf("%s must be a number", f.label())
		}
		if err := validate.Var(n, "gte=0"); err != nil {
			return nil, fmt.Sprintf("%s cannot be negative", f.label())
		}
		if f.Kind == Integer {
			if n != math.Trunc(n) {
				return nil, fmt.Sprintf("%s must be a whole number", f.label())
			}
			if n >= math.MaxInt64 {
				return nil, fmt.Sprintf("%s is too large", f.label())
			}
			return int64(n), ""
		}
		return n, ""
	}
	return s, ""
}

// FormatNumber renders a stored number the way the editor seeds it.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
