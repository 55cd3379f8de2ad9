package school

import (
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

const PasswordField = "password"

var (
	bcryptCost = bcrypt.DefaultCost

	// password attributes similarity threshold
	pwdMaxSim = .7
	pwdAttrs  = []struct{ field, label string }{
		{"name", "Full name"},
		{"email", "Email"},
	}
)

// HashPassword returns the bcrypt hash stored in place of a password.
func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

func CheckPasswordHash(hash, pwd string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)) == nil
}

// PasswordPolicy returns the messages of the rules pwd breaks.
// attrs are the user attributes the password must not look like, keyed by field name.
func PasswordPolicy(tr ut.Translator, pwd string, attrs map[string]string) []string {
	digits := 0
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return []string{core.T(tr, core.MsgPwdWhitespace)}
		}
		if unicode.IsDigit(char) {
			digits++
		}
	}
	if digits == len([]rune(pwd)) {
		return []string{core.T(tr, core.MsgPwdAllNumeric)}
	}

	ratio := func(attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pwd), ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	for _, a := range pwdAttrs {
		if ratio(attrs[a.field]) >= pwdMaxSim {
			return []string{core.T(tr, core.MsgPwdTooSimilar, core.T(tr, a.label))}
		}
	}
	return nil
}

// passwordHook applies the password policy to a user write and replaces the password with its hash.
// A cleared password on update keeps the stored one.
func passwordHook(sc crud.Scope, vals crud.Values, current crud.Row) error {
	raw, ok := vals[PasswordField]
	if !ok {
		return nil
	}
	pwd, _ := raw.(string)
	if pwd == "" {
		delete(vals, PasswordField)
		return nil
	}

	attrs := make(map[string]string, len(pwdAttrs))
	for _, a := range pwdAttrs {
		if v, ok := vals[a.field].(string); ok {
			attrs[a.field] = v
		} else if v, ok := current[a.field].(string); ok {
			attrs[a.field] = v
		}
	}
	if msgs := PasswordPolicy(sc.Translator, pwd, attrs); len(msgs) > 0 {
		flds := make([]core.FieldError, 0, len(msgs))
		for _, msg := range msgs {
			flds = append(flds, core.FieldError{Field: PasswordField, Error: msg})
		}
		return core.NewValidationError(crud.ErrValidation, flds...)
	}

	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	vals[PasswordField] = hash
	return nil
}
