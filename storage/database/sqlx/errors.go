package sqlxdb

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

// Postgres error codes the store maps to domain errors.
const (
	codeNotNull    = "23502"
	codeForeignKey = "23503"
	codeUnique     = "23505"
	codeCheck      = "23514"
)

// keyDetailRegex reads the first column out of details like `Key (name)=(admin) already exists.`
var keyDetailRegex = regexp.MustCompile(`^Key \(([^),]+)`)

// mapError converts driver errors to crud and core errors.
func mapError(d *crud.Descriptor, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return crud.ErrNoRow
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeNotNull:
		return &crud.RequiredFieldError{Field: fieldName(d, pqErr.Column)}
	case codeForeignKey, codeUnique, codeCheck:
		col := pqErr.Column
		if m := keyDetailRegex.FindStringSubmatch(pqErr.Detail); m != nil {
			col = strings.TrimSpace(m[1])
		}
		return core.NewConflictError(err, fieldName(d, col))
	}
	return err
}

// fieldName returns the name of the field stored in col.
func fieldName(d *crud.Descriptor, col string) string {
	if d != nil {
		for _, f := range d.Fields {
			if f.ColumnName() == col {
				return f.Name
			}
		}
	}
	return col
}
