// Package draft holds transient create/edit form state and its validation.
package draft

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"

	"scolarite/internal/domain/fault"
)

// Mode says whether a draft creates a resource or edits an existing one.
type Mode int

const (
	Create Mode = iota
	Edit
)

// String returns the mode name used in form markup.
func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

// Draft is the field state of one open form.
// INVARIANT: TargetID is empty exactly when Mode is Create
type Draft struct {
	Fields   map[string]string
	Mode     Mode
	TargetID string
}

// NewCreate returns an empty create draft with optional defaults.
func NewCreate(defaults map[string]string) Draft {
	d := Draft{Fields: make(map[string]string, len(defaults)), Mode: Create}
	for k, v := range defaults {
		d.Fields[k] = v
	}
	return d
}

// NewEdit returns a draft pre-populated from the target resource.
// PRE: targetID is non-empty
func NewEdit(targetID string, fields map[string]string) Draft {
	d := NewCreate(fields)
	d.Mode = Edit
	d.TargetID = targetID
	return d
}

// FromForm builds a draft from submitted form values, keeping only the named fields.
// Values are trimmed. An empty targetID gives a create draft.
func FromForm(values url.Values, targetID string, names ...string) Draft {
	fields := make(map[string]string, len(names))
	for _, n := range names {
		fields[n] = strings.TrimSpace(values.Get(n))
	}
	if targetID == "" {
		return NewCreate(fields)
	}
	return NewEdit(targetID, fields)
}

// Get returns a field value, or "" when unset.
func (d Draft) Get(name string) string {
	return d.Fields[name]
}

// IsEdit reports whether the draft edits an existing resource.
func (d Draft) IsEdit() bool {
	return d.Mode == Edit
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	frLocale := fr.New()
	uni := ut.New(frLocale, frLocale)
	translator, _ = uni.GetTranslator("fr")
	_ = fr_translations.RegisterDefaultTranslations(validate, translator)

	// Report form field names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks v's struct tags.
// PRE: v is a struct or pointer to struct
// POST: nil when valid; otherwise a validation *fault.Error keyed by form field name
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return fault.Validation(fields)
}

// FieldError builds a validation error for a single field.
func FieldError(field, message string) error {
	return fault.Validation(map[string]string{field: message})
}
