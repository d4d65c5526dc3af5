package auth

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"melodora/internal/i18n"
)

// Credentials is the sign-in form.
type Credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// Registration is the sign-up form.
type Registration struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

// CredentialsFromRequest reads the sign-in form fields.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// RegistrationFromRequest reads the sign-up form fields.
func RegistrationFromRequest(r *http.Request) Registration {
	return Registration{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// ValidationError lists the message keys of failed form fields in field order.
type ValidationError struct {
	Keys []string
}

func (e *ValidationError) Error() string {
	return "form validation failed: " + strings.Join(e.Keys, ", ")
}

// Localize renders the first failure; forms show one message at a time.
func (e *ValidationError) Localize(l *i18n.Localizer) string {
	if len(e.Keys) == 0 {
		return l.T("error.generic")
	}
	return l.T(e.Keys[0])
}

// FormValidator checks auth forms with go-playground/validator.
type FormValidator struct {
	v *validator.Validate
}

func NewFormValidator() *FormValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		return fld.Name
	})
	return &FormValidator{v: v}
}

// Validate returns nil or a *ValidationError.
func (fv *FormValidator) Validate(form any) error {
	err := fv.v.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	keys := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		keys = append(keys, messageKey(fe))
	}
	return &ValidationError{Keys: keys}
}

func messageKey(fe validator.FieldError) string {
	switch fe.Field() {
	case "email":
		return "validate.email"
	case "password":
		if fe.Tag() == "min" {
			return "validate.password_short"
		}
		return "validate.password_empty"
	default:
		return "error.generic"
	}
}
