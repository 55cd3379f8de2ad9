package sqlxdb

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

// UnitOfWork runs crud transactions on a SQL database.
type UnitOfWork struct {
	db core.DB
}

var _ crud.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db core.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(tx crud.Store) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	if err = fn(newStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(mapError(nil, err), "committing transaction")
	}
	return nil
}

func newStore(tx core.DBExecutor) *store {
	return &store{
		tx: tx,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}
