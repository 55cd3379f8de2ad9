package sqlxdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

var idColumn = pq.QuoteIdentifier(crud.IDField)

// store is the crud.Store of one transaction. Every identifier is quoted.
type store struct {
	tx core.DBExecutor
	sb squirrel.StatementBuilderType
}

var _ crud.Store = (*store)(nil)

func (s *store) FindAndCountAll(ctx context.Context, d *crud.Descriptor, q crud.ListQuery) ([]crud.Row, int, error) {
	order, unknown, err := orderBy(d, q.Sort)
	if err != nil {
		return nil, 0, err
	}
	table := pq.QuoteIdentifier(d.Table)
	countQ := s.sb.Select("COUNT(*)").From(table)
	selectQ := s.sb.Select(columns(d)...).From(table)
	for _, pred := range where(q.Filters) {
		countQ = countQ.Where(pred)
		selectQ = selectQ.Where(pred)
	}
	selectQ = selectQ.OrderBy(order...).Limit(uint64(q.Paging.Limit)).Offset(uint64(q.Paging.Skip))

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building count query")
	}
	var total int
	if err = s.tx.QueryRowxContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrapf(mapError(d, err), "counting %s", d.Table)
	}

	query, args, err = selectQ.ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building select query")
	}
	rows, err := s.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42703" && len(unknown) > 0 {
			return nil, 0, &crud.SortFieldError{Field: unknown[0]}
		}
		return nil, 0, errors.Wrapf(mapError(d, err), "selecting %s", d.Table)
	}
	defer func() { _ = rows.Close() }()

	res := make([]crud.Row, 0, q.Paging.Limit)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "scanning %s", d.Table)
		}
		res = append(res, toRow(d, vals))
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrapf(mapError(d, err), "iterating %s", d.Table)
	}
	return res, total, nil
}

func (s *store) FindByID(ctx context.Context, d *crud.Descriptor, id int64, forUpdate bool) (crud.Row, error) {
	b := s.sb.Select(columns(d)...).From(pq.QuoteIdentifier(d.Table)).Where(squirrel.Eq{idColumn: id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building select query")
	}
	vals, err := s.tx.QueryRowxContext(ctx, query, args...).SliceScan()
	if err != nil {
		return nil, mapError(d, err)
	}
	return toRow(d, vals), nil
}

func (s *store) Create(ctx context.Context, d *crud.Descriptor, vals crud.Values) (int64, error) {
	table := pq.QuoteIdentifier(d.Table)
	returning := "RETURNING " + idColumn

	var (
		query string
		args  []interface{}
		err   error
	)
	if set := setMap(d, vals); len(set) > 0 {
		query, args, err = s.sb.Insert(table).SetMap(set).Suffix(returning).ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "building insert query")
		}
	} else {
		query = "INSERT INTO " + table + " DEFAULT VALUES " + returning
	}

	var id int64
	if err = s.tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError(d, err)
	}
	return id, nil
}

func (s *store) Save(ctx context.Context, d *crud.Descriptor, id int64, vals crud.Values) error {
	set := setMap(d, vals)
	if len(set) == 0 {
		return nil
	}
	query, args, err := s.sb.Update(pq.QuoteIdentifier(d.Table)).SetMap(set).Where(squirrel.Eq{idColumn: id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building update query")
	}
	return s.exec(ctx, d, query, args)
}

func (s *store) Destroy(ctx context.Context, d *crud.Descriptor, id int64) error {
	query, args, err := s.sb.Delete(pq.QuoteIdentifier(d.Table)).Where(squirrel.Eq{idColumn: id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	return s.exec(ctx, d, query, args)
}

// exec runs a statement that must affect a row.
func (s *store) exec(ctx context.Context, d *crud.Descriptor, query string, args []interface{}) error {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(d, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return crud.ErrNoRow
	}
	return nil
}

// columns are the id and every field column, in descriptor order.
func columns(d *crud.Descriptor) []string {
	cols := make([]string, 0, len(d.Fields)+1)
	cols = append(cols, idColumn)
	for _, f := range d.Fields {
		cols = append(cols, pq.QuoteIdentifier(f.ColumnName()))
	}
	return cols
}

func setMap(d *crud.Descriptor, vals crud.Values) map[string]interface{} {
	set := make(map[string]interface{}, len(vals))
	for name, v := range vals {
		if f, ok := d.Field(name); ok {
			set[pq.QuoteIdentifier(f.ColumnName())] = v
		}
	}
	return set
}

func where(filters []crud.Filter) []squirrel.Sqlizer {
	preds := make([]squirrel.Sqlizer, 0, len(filters))
	for _, f := range filters {
		col := pq.QuoteIdentifier(f.Column)
		switch f.Mode {
		case crud.FilterStartsWith:
			preds = append(preds, squirrel.Like{col: escapeLike(f.Value) + "%"})
		case crud.FilterContains:
			preds = append(preds, squirrel.Like{col: "%" + escapeLike(f.Value) + "%"})
		default:
			preds = append(preds, squirrel.Eq{col: f.Value})
		}
	}
	return preds
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(v interface{}) string {
	s, _ := v.(string)
	return likeEscaper.Replace(s)
}

// orderBy resolves sort fields to columns. Names that are not fields are kept as columns
// and returned in unknown; the database rejects them if they do not exist.
func orderBy(d *crud.Descriptor, sorts []crud.Sort) (order, unknown []string, err error) {
	for _, srt := range sorts {
		col := srt.Field
		if srt.Field != crud.IDField {
			if f, ok := d.Field(srt.Field); ok {
				if f.Hidden {
					return nil, nil, &crud.SortFieldError{Field: srt.Field}
				}
				col = f.ColumnName()
			} else {
				unknown = append(unknown, srt.Field)
			}
		}
		dir := crud.ASC
		if srt.Direction == crud.DESC {
			dir = crud.DESC
		}
		order = append(order, pq.QuoteIdentifier(col)+" "+string(dir))
	}
	return order, unknown, nil
}

func toRow(d *crud.Descriptor, vals []interface{}) crud.Row {
	row := make(crud.Row, len(vals))
	row[crud.IDField] = vals[0]
	for i, f := range d.Fields {
		row[f.Name] = normalize(f.Type, vals[i+1])
	}
	return row
}

// normalize converts driver values to the Go type of the field.
func normalize(ft crud.FieldType, v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch ft {
	case crud.TypeFloat:
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case crud.TypeInt:
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	}
	return string(b)
}
