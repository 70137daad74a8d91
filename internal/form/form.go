// Package form validates request parameters: required and typed fields
// checked against url.Values, with localized error messages.
package form

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tipline/internal/locale"
)

// Form validates one request's parameters. Rules are applied per field;
// the first failing rule wins.
type Form struct {
	values  url.Values
	catalog *locale.Catalog

	// Errors maps field name to the first failing message
	Errors map[string]string
}

// New creates a form over request parameters
func New(values url.Values, catalog *locale.Catalog) *Form {
	if catalog == nil {
		catalog = locale.Builtin()
	}
	return &Form{
		values:  values,
		catalog: catalog,
		Errors:  make(map[string]string),
	}
}

// Valid reports whether all checked fields passed
func (f *Form) Valid() bool {
	return len(f.Errors) == 0
}

// fail records the first error for a field
func (f *Form) fail(field, key string) {
	if _, exists := f.Errors[field]; !exists {
		f.Errors[field] = f.catalog.Get(key)
	}
}

// Get returns the trimmed raw value of a field
func (f *Form) Get(field string) string {
	return strings.TrimSpace(f.values.Get(field))
}

// Has reports whether the field is present and non-empty
func (f *Form) Has(field string) bool {
	return f.Get(field) != ""
}

// Required fails the field when it is absent or blank
func (f *Form) Required(fields ...string) *Form {
	for _, field := range fields {
		if f.Get(field) == "" {
			f.fail(field, "form.required")
		}
	}
	return f
}

// Int fails the field when present but not a whole number
func (f *Form) Int(field string) *Form {
	v := f.Get(field)
	if v == "" {
		return f
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		f.fail(field, "form.int")
	}
	return f
}

// Float fails the field when present but not a number
func (f *Form) Float(field string) *Form {
	v := f.Get(field)
	if v == "" {
		return f
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		f.fail(field, "form.float")
	}
	return f
}

// Email fails the field when present but not an address
func (f *Form) Email(field string) *Form {
	v := f.Get(field)
	if v == "" {
		return f
	}
	if _, err := mail.ParseAddress(v); err != nil {
		f.fail(field, "form.email")
	}
	return f
}

// Date fails the field when present but not parseable with layout
func (f *Form) Date(field, layout string) *Form {
	v := f.Get(field)
	if v == "" {
		return f
	}
	if _, err := time.Parse(layout, v); err != nil {
		f.fail(field, "form.date")
	}
	return f
}

// MaxLen fails the field when longer than n runes
func (f *Form) MaxLen(field string, n int) *Form {
	if len([]rune(f.Get(field))) > n {
		f.fail(field, "form.maxlen")
	}
	return f
}

// In fails the field when present but not one of choices
func (f *Form) In(field string, choices ...string) *Form {
	v := f.Get(field)
	if v == "" {
		return f
	}
	for _, c := range choices {
		if v == c {
			return f
		}
	}
	f.fail(field, "form.choice")
	return f
}

// GetInt returns the parsed integer value of a field, 0 when absent or bad.
// Call after validation.
func (f *Form) GetInt(field string) int64 {
	v, _ := strconv.ParseInt(f.Get(field), 10, 64)
	return v
}

// GetFloat returns the parsed float value of a field
func (f *Form) GetFloat(field string) float64 {
	v, _ := strconv.ParseFloat(f.Get(field), 64)
	return v
}
