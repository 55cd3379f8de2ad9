package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/journal/core/crud"
)

type (
	// DB is an in-memory crud.UnitOfWork. Transactions are serialized and see a private
	// copy of the tables they write; the copies replace the tables on commit.
	DB struct {
		tables map[string]*table
		mutex  sync.Mutex
	}

	table struct {
		rows  map[int64]crud.Row
		pkSeq int64
	}
)

var _ crud.UnitOfWork = (*DB)(nil)

func Open() *DB {
	return &DB{tables: make(map[string]*table)}
}

func (db *DB) Execute(ctx context.Context, fn func(tx crud.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	tx := &store{db: db, dirty: make(map[string]*table)}
	if err := fn(tx); err != nil {
		return err // rollback: drop the copies
	}
	for name, t := range tx.dirty {
		db.tables[name] = t
	}
	return nil
}

func (t *table) clone() *table {
	cp := &table{rows: make(map[int64]crud.Row, len(t.rows)), pkSeq: t.pkSeq}
	for id, row := range t.rows {
		cp.rows[id] = row
	}
	return cp
}
