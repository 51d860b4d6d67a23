// Package validation enforces the contact submission schema. All field
// violations are collected and reported together so a client can fix every
// problem in one round trip.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/block-nexus/blocknexus-site/types"
	"github.com/go-playground/validator/v10"
)

// phoneDigits matches a normalized phone number: optional leading plus
// followed by 10 to 15 digits.
var phoneDigits = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// phoneSeparators are stripped before the digit check.
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// Validator validates sanitized contact submissions.
type Validator struct {
	validate          *validator.Validate
	disposableDomains map[string]struct{}
}

// New creates a Validator. disposableDomains are email domains rejected
// during validation (matched case-insensitively).
func New(disposableDomains []string) *Validator {
	v := &Validator{
		validate:          validator.New(),
		disposableDomains: make(map[string]struct{}, len(disposableDomains)),
	}
	for _, d := range disposableDomains {
		v.disposableDomains[strings.ToLower(d)] = struct{}{}
	}

	// Report fields by their json names so error output matches the wire format.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for nil/blank rules, which would be a
	// programming error here.
	mustRegister(v.validate, "notdisposable", v.notDisposable)
	mustRegister(v.validate, "phone", validPhone)
	mustRegister(v.validate, "service", validService)
	mustRegister(v.validate, "consent", validConsent)

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Validate checks every schema constraint on a sanitized submission and
// returns all violations, or nil when the submission is fully valid.
func (v *Validator) Validate(sub *types.ContactSubmission) []apperrors.FieldError {
	err := v.validate.Struct(sub)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperrors.FieldError{{Field: "_", Message: "Invalid submission"}}
	}

	fieldErrors := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, apperrors.FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return fieldErrors
}

func (v *Validator) notDisposable(fl validator.FieldLevel) bool {
	email := fl.Field().String()
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		// Leave syntax problems to the email rule.
		return true
	}
	domain := strings.ToLower(email[at+1:])
	_, disposable := v.disposableDomains[domain]
	return !disposable
}

func validPhone(fl validator.FieldLevel) bool {
	cleaned := phoneSeparators.Replace(fl.Field().String())
	return phoneDigits.MatchString(cleaned)
}

func validService(fl validator.FieldLevel) bool {
	service := fl.Field().String()
	for _, s := range types.ServiceCategories {
		if service == s {
			return true
		}
	}
	return false
}

func validConsent(fl validator.FieldLevel) bool {
	return fl.Field().String() == types.ConsentGranted
}

// messageFor maps a failed rule to the human-readable message shown to the
// client (when verbose diagnostics are enabled).
func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "name":
		switch fe.Tag() {
		case "required":
			return "Name is required"
		case "max":
			return "Name must be less than 100 characters"
		}
	case "email":
		switch fe.Tag() {
		case "required":
			return "Email is required"
		case "max":
			return "Email must be less than 255 characters"
		case "email":
			return "Please enter a valid email address"
		case "notdisposable":
			return "Please use a valid business email address"
		}
	case "message":
		switch fe.Tag() {
		case "required", "min":
			return "Message must be at least 10 characters"
		case "max":
			return "Message must be less than 5000 characters"
		}
	case "company":
		return "Company name must be less than 200 characters"
	case "phone":
		return "Please enter a valid phone number"
	case "service":
		return "Please select a valid service"
	case "consent":
		return "You must agree to be contacted"
	}
	return "Invalid value"
}
