package crud

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// ErrNoRow is returned by a Store when the requested row does not exist.
var ErrNoRow = errors.New("no row")

// Store is the data access of a transaction. Rows and values are keyed by field name;
// mapping fields to columns is up to the implementation.
type Store interface {
	// FindAndCountAll returns the page of rows matching q and the count of all matching rows.
	FindAndCountAll(ctx context.Context, d *Descriptor, q ListQuery) ([]Row, int, error)
	// FindByID returns ErrNoRow when id does not exist. forUpdate locks the row until the end of the transaction.
	FindByID(ctx context.Context, d *Descriptor, id int64, forUpdate bool) (Row, error)
	Create(ctx context.Context, d *Descriptor, vals Values) (int64, error)
	Save(ctx context.Context, d *Descriptor, id int64, vals Values) error
	Destroy(ctx context.Context, d *Descriptor, id int64) error
}

// UnitOfWork runs fn in a transaction: it commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx Store) error) error
}

// SortFieldError is returned by a Store asked to sort by a column it does not have.
type SortFieldError struct {
	Field string
}

func (err SortFieldError) Error() string {
	return "unknown sort field " + strconv.Quote(err.Field)
}

// RequiredFieldError is returned by a Store when a write leaves a required field NULL.
type RequiredFieldError struct {
	Field string
}

func (err RequiredFieldError) Error() string {
	return "required field " + strconv.Quote(err.Field) + " is null"
}
