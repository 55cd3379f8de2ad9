package crud

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
)

// ErrValidation is the cause of every payload ValidationError.
var ErrValidation = errors.New("validation failed")

// Mode selects how the Required flag of the rules is read.
type Mode int

const (
	// ModeDeclared enforces Required as declared (create).
	ModeDeclared Mode = iota
	// ModeOptional treats every field as optional (update, list filters).
	ModeOptional
)

// Validator checks payloads against descriptor fields.
type Validator struct {
	validate *validator.Validate
}

func NewValidator(validate *validator.Validate) *Validator {
	return &Validator{validate: validate}
}

// Check validates the fields of payload named by flds and returns their typed values.
// Keys of payload that are not in flds are ignored. Empty values ("" and null) of present keys
// are kept as is; callers apply their own empty policy.
// Every violation of every field is collected in the returned *core.ValidationError.
func (v *Validator) Check(sc Scope, payload Payload, flds []Field, mode Mode) (Values, error) {
	vals := make(Values, len(flds))
	var errs []core.FieldError

	for _, f := range flds {
		raw, present := payload[f.Name]
		required := f.Required && mode == ModeDeclared
		label := core.T(sc.Translator, f.Label)

		if isEmpty(raw) {
			if required {
				errs = append(errs, core.FieldError{Field: f.Name, Error: core.T(sc.Translator, core.MsgRequired, label)})
			} else if present {
				vals[f.Name] = raw
			}
			continue
		}

		val, ok := coerce(raw, f.Type)
		if !ok {
			typ := core.T(sc.Translator, "type."+string(f.Type))
			errs = append(errs, core.FieldError{Field: f.Name, Error: core.T(sc.Translator, core.MsgType, label, typ)})
			continue
		}
		for _, msg := range v.constraints(sc, f, label, val) {
			errs = append(errs, core.FieldError{Field: f.Name, Error: msg})
		}
		vals[f.Name] = val
	}

	if len(errs) > 0 {
		return nil, core.NewValidationError(ErrValidation, errs...)
	}
	return vals, nil
}

// constraints returns one message per violated constraint of f.
func (v *Validator) constraints(sc Scope, f Field, label string, val interface{}) []string {
	var msgs []string
	tr := sc.Translator

	switch val := val.(type) {
	case string:
		if tag, key, params := lengthRule(f); tag != "" {
			if err := v.validate.Var(val, tag); err != nil {
				msgs = append(msgs, core.T(tr, key, append([]string{label}, params...)...))
			}
		}
		if f.Format != "" {
			if err := v.validate.Var(val, f.Format); err != nil {
				msgs = append(msgs, core.T(tr, core.MsgFormat, label))
			}
		}

	case int64, float64:
		if tag, key, params := boundsRule(f); tag != "" {
			n, _ := toFloat(val)
			if err := v.validate.Var(n, tag); err != nil {
				msgs = append(msgs, core.T(tr, key, append([]string{label}, params...)...))
			}
		}
	}
	return msgs
}

func lengthRule(f Field) (tag, key string, params []string) {
	switch {
	case f.MinLength != nil && f.MaxLength != nil:
		lo, hi := strconv.Itoa(*f.MinLength), strconv.Itoa(*f.MaxLength)
		return fmt.Sprintf("min=%s,max=%s", lo, hi), core.MsgLength, []string{lo, hi}
	case f.MinLength != nil:
		lo := strconv.Itoa(*f.MinLength)
		return "min=" + lo, core.MsgMinLength, []string{lo}
	case f.MaxLength != nil:
		hi := strconv.Itoa(*f.MaxLength)
		return "max=" + hi, core.MsgMaxLength, []string{hi}
	}
	return "", "", nil
}

func boundsRule(f Field) (tag, key string, params []string) {
	switch {
	case f.Min != nil && f.Max != nil:
		lo, hi := formatFloat(*f.Min), formatFloat(*f.Max)
		return fmt.Sprintf("gte=%s,lte=%s", lo, hi), core.MsgBetween, []string{lo, hi}
	case f.Min != nil:
		lo := formatFloat(*f.Min)
		return "gte=" + lo, core.MsgMin, []string{lo}
	case f.Max != nil:
		hi := formatFloat(*f.Max)
		return "lte=" + hi, core.MsgMax, []string{hi}
	}
	return "", "", nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
