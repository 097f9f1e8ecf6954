// Package validation turns validator/v10 struct tags into field/message pairs
// with readable English messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	tagNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.#+]+$`)
	hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors collects failed checks. A non-empty Errors is an error.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Add appends a check failure for field.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Err returns e as an error, or nil when it is empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsErrors extracts field errors from err, if it carries any.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// Single builds an error carrying one field failure.
func Single(field, message string) error {
	return Errors{{Field: field, Message: message}}
}

type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

type custom struct {
	tag     string
	fn      validator.Func
	message string
}

var customs = []custom{
	{"tagname", matches(tagNamePattern), "{0} may only contain letters, numbers, spaces and - _ . # +"},
	{"hexcolor6", matches(hexColorPattern), "{0} must be a hex color like #3B82F6"},
	{"emailaddr", matches(emailPattern), "{0} must be a valid email address"},
	{"strongpassword", strongPassword, "{0} must be at least 8 characters with an uppercase letter, a lowercase letter and a digit"},
	{"notblank", notBlank, "{0} is a required field"},
}

func New() *Validator {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}

	for _, c := range customs {
		c := c
		if err := validate.RegisterValidation(c.tag, c.fn); err != nil {
			panic(err)
		}
		err := validate.RegisterTranslation(c.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(c.tag, c.message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(c.tag, fe.Field())
				return t
			},
		)
		if err != nil {
			panic(err)
		}
	}

	return &Validator{validate: validate, translator: trans}
}

// Struct validates s and returns its failures in field order.
func (v *Validator) Struct(s interface{}) Errors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "", Message: err.Error()}}
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fe.Translate(v.translator)})
	}
	return out
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func strongPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
