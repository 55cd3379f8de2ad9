package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/journal/core/crud"
)

// store is the crud.Store of one transaction.
type store struct {
	db    *DB
	dirty map[string]*table
}

var _ crud.Store = (*store)(nil)

func (s *store) read(name string) *table {
	if t, ok := s.dirty[name]; ok {
		return t
	}
	if t, ok := s.db.tables[name]; ok {
		return t
	}
	return &table{}
}

func (s *store) write(name string) *table {
	if t, ok := s.dirty[name]; ok {
		return t
	}
	t := s.read(name).clone()
	s.dirty[name] = t
	return t
}

func (s *store) FindAndCountAll(ctx context.Context, d *crud.Descriptor, q crud.ListQuery) ([]crud.Row, int, error) {
	for _, srt := range q.Sort {
		if !sortable(d, srt.Field) {
			return nil, 0, &crud.SortFieldError{Field: srt.Field}
		}
	}

	var rows []crud.Row
	for _, row := range s.read(d.Table).rows {
		if matches(row, q.Filters) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, srt := range q.Sort {
			c := compare(rows[i][srt.Field], rows[j][srt.Field])
			if c == 0 {
				continue
			}
			if srt.Direction == crud.DESC {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	total := len(rows)
	lo := min(q.Paging.Skip, total)
	hi := min(lo+q.Paging.Limit, total)
	page := make([]crud.Row, 0, hi-lo)
	for _, row := range rows[lo:hi] {
		page = append(page, copyRow(row))
	}
	return page, total, nil
}

func (s *store) FindByID(ctx context.Context, d *crud.Descriptor, id int64, forUpdate bool) (crud.Row, error) {
	row, ok := s.read(d.Table).rows[id]
	if !ok {
		return nil, crud.ErrNoRow
	}
	return copyRow(row), nil
}

func (s *store) Create(ctx context.Context, d *crud.Descriptor, vals crud.Values) (int64, error) {
	t := s.write(d.Table)
	if t.rows == nil {
		t.rows = make(map[int64]crud.Row)
	}
	row := crud.Row{}
	for _, f := range d.Fields {
		row[f.Name] = vals[f.Name]
	}
	if err := checkRequired(d, row); err != nil {
		return 0, err
	}
	t.pkSeq++
	row[crud.IDField] = t.pkSeq
	t.rows[t.pkSeq] = row
	return t.pkSeq, nil
}

func (s *store) Save(ctx context.Context, d *crud.Descriptor, id int64, vals crud.Values) error {
	t := s.write(d.Table)
	old, ok := t.rows[id]
	if !ok {
		return crud.ErrNoRow
	}
	row := copyRow(old)
	for name, v := range vals {
		if _, known := d.Field(name); known {
			row[name] = v
		}
	}
	if err := checkRequired(d, row); err != nil {
		return err
	}
	t.rows[id] = row
	return nil
}

func (s *store) Destroy(ctx context.Context, d *crud.Descriptor, id int64) error {
	t := s.write(d.Table)
	if _, ok := t.rows[id]; !ok {
		return crud.ErrNoRow
	}
	delete(t.rows, id)
	return nil
}

// checkRequired plays the NOT NULL constraints of the required fields.
func checkRequired(d *crud.Descriptor, row crud.Row) error {
	for _, f := range d.Fields {
		if f.Required && row[f.Name] == nil {
			return &crud.RequiredFieldError{Field: f.Name}
		}
	}
	return nil
}

func sortable(d *crud.Descriptor, name string) bool {
	if name == crud.IDField {
		return true
	}
	f, ok := d.Field(name)
	return ok && !f.Hidden
}

func matches(row crud.Row, filters []crud.Filter) bool {
	for _, f := range filters {
		switch f.Mode {
		case crud.FilterStartsWith, crud.FilterContains:
			have, ok := row[f.Field].(string)
			want, _ := f.Value.(string)
			if !ok {
				return false
			}
			if f.Mode == crud.FilterStartsWith && !strings.HasPrefix(have, want) {
				return false
			}
			if f.Mode == crud.FilterContains && !strings.Contains(have, want) {
				return false
			}
		default:
			if row[f.Field] == nil || compare(row[f.Field], f.Value) != 0 {
				return false
			}
		}
	}
	return true
}

// compare orders values the way Postgres does by default: NULLs sort last.
func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	switch a := a.(type) {
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b)
		}
	case bool:
		if b, ok := b.(bool); ok {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b)
		}
	default:
		if fa, ok := number(a); ok {
			if fb, ok := number(b); ok {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				}
				return 0
			}
		}
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func copyRow(row crud.Row) crud.Row {
	cp := make(crud.Row, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}
