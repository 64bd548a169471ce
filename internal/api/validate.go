package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("password", validatePassword)
	_ = v.RegisterValidation("objectid", validateObjectID)
	return v
}

// validatePassword requires at least 8 characters with one letter and one digit.
func validatePassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func validateObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

// Validate checks the `validate` tags of a request DTO and returns a 400
// *Error listing every failing field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return WrapError(http.StatusBadRequest, validationMessage(validationErrs), err)
	}
	return WrapError(http.StatusBadRequest, "Invalid request", err)
}

// ValidateVar checks a single value against a tag, e.g. an id path parameter.
func ValidateVar(name string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return BadRequest(fmt.Sprintf("%s is invalid", name))
	}
	return nil
}

// DecodeAndValidate decodes the JSON body into dst and validates it.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := DecodeJSONBody(w, r, dst); err != nil {
		return WrapError(http.StatusBadRequest, err.Error(), err)
	}
	return Validate(dst)
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "password":
		return fmt.Sprintf("%q must be at least 8 characters and contain at least 1 letter and 1 number", field)
	case "objectid", "uuid", "uuid4":
		return fmt.Sprintf("%q must be a valid id", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%q must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%q must be at most %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%q must be a valid url", field)
	}
	return fmt.Sprintf("%q failed on the %q rule", field, fe.Tag())
}
