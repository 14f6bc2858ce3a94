package book

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid reports a book that is not valid for saving.
var ErrInvalid = errors.New("book is not valid")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})

	return validate
}

// Validate checks that b can be saved: title and author must not be blank.
// The returned error wraps [ErrInvalid] and names the failing fields.
func Validate(b Book) error {
	err := validatorInstance().Struct(b)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	keys := make([]string, 0, len(fieldErrs))
	seen := make(map[string]bool, len(fieldErrs))

	for _, fe := range fieldErrs {
		key := strings.ToLower(fe.StructField())
		if seen[key] {
			continue
		}

		seen[key] = true
		keys = append(keys, key)
	}

	return fmt.Errorf("%w: %s required", ErrInvalid, strings.Join(keys, ", "))
}

// IsValid reports whether [Validate] accepts b.
func IsValid(b Book) bool {
	return Validate(b) == nil
}
