package services

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

var validate = newValidator()

// passwordRules are reported in the order the tags run
var passwordRules = map[string]string{
	"min":        "Password must be at least 8 characters long",
	"hasupper":   "Password must contain an uppercase letter",
	"haslower":   "Password must contain a lowercase letter",
	"hasdigit":   "Password must contain a digit",
	"hasspecial": "Password must contain a special character",
}

type passwordInput struct {
	Password string `validate:"min=8,hasupper,haslower,hasdigit,hasspecial"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("hasupper", containsRune(unicode.IsUpper))
	v.RegisterValidation("haslower", containsRune(unicode.IsLower))
	v.RegisterValidation("hasdigit", containsRune(unicode.IsDigit))
	v.RegisterValidation("hasspecial", containsRune(func(r rune) bool {
		return strings.ContainsRune(passwordSpecialChars, r)
	}))
	return v
}

func containsRune(match func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), match) >= 0
	}
}

// ValidateEmail rejects anything that is not a single address
func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword returns a ValidationError naming the first rule the password breaks
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	err := validate.Struct(passwordInput{Password: password})
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		if message, ok := passwordRules[validationErrors[0].Tag()]; ok {
			return &ValidationError{Message: message}
		}
	}
	return &ValidationError{Message: "Password does not meet requirements"}
}
