package crud

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/trezcool/journal/core"
)

// Query parameter names.
const (
	ParamOffset    = "offset"
	ParamLimit     = "limit"
	ParamSort      = "sort"
	ParamDirection = "direction"
	ParamInclude   = "include"
)

type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

type (
	Paging struct {
		Skip  int
		Limit int
	}

	Filter struct {
		Field  string
		Column string
		Mode   FilterMode
		Value  interface{}
	}

	Sort struct {
		Field     string
		Direction Direction
	}

	// ListQuery is what a store needs to run a list.
	ListQuery struct {
		Paging  Paging
		Filters []Filter
		Sort    []Sort
	}

	PagingLimits struct {
		Default int
		Max     int
	}
)

func NewPagingLimits(conf core.PagingConfig) PagingLimits {
	return PagingLimits{Default: conf.DefaultLimit, Max: conf.MaxLimit}
}

// BuildQuery derives the directives of a list from its query parameters and the validated filter values.
//
// Paging: offset < 0 is 0; limit <= 0 is the default limit; limit is capped to the max limit.
// Sorting: sort is a comma separated list of field names, a leading "-" flips direction for that field.
// Unknown sort fields are kept; the store rejects them. The id is always appended as a tie-breaker.
func BuildQuery(sc Scope, params url.Values, filters Values, lim PagingLimits) (ListQuery, error) {
	var (
		q    ListQuery
		errs []core.FieldError
		tr   = sc.Translator
	)

	intParam := func(name, label string, def int) int {
		raw := strings.TrimSpace(params.Get(name))
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			typ := core.T(tr, "type."+string(TypeInt))
			errs = append(errs, core.FieldError{Field: name, Error: core.T(tr, core.MsgType, core.T(tr, label), typ)})
			return def
		}
		return n
	}

	q.Paging.Skip = intParam(ParamOffset, "Offset", 0)
	if q.Paging.Skip < 0 {
		q.Paging.Skip = 0
	}
	q.Paging.Limit = intParam(ParamLimit, "Limit", lim.Default)
	if q.Paging.Limit <= 0 {
		q.Paging.Limit = lim.Default
	}
	if q.Paging.Limit > lim.Max {
		q.Paging.Limit = lim.Max
	}

	for _, f := range sc.Entity.Filterable() {
		if v, ok := filters[f.Name]; ok && !isEmpty(v) {
			q.Filters = append(q.Filters, Filter{Field: f.Name, Column: f.ColumnName(), Mode: f.Filter, Value: v})
		}
	}

	dir := ASC
	switch raw := strings.ToUpper(strings.TrimSpace(params.Get(ParamDirection))); raw {
	case "", string(ASC):
	case string(DESC):
		dir = DESC
	default:
		errs = append(errs, core.FieldError{
			Field: ParamDirection,
			Error: core.T(tr, core.MsgOneOf, core.T(tr, "Direction"), "asc, desc"),
		})
	}

	fields := strings.Split(params.Get(ParamSort), ",")
	hasID := false
	for _, name := range fields {
		name = strings.TrimSpace(name)
		d := dir
		if strings.HasPrefix(name, "-") {
			name = strings.TrimSpace(name[1:])
			d = flip(dir)
		}
		if name == "" {
			continue
		}
		hasID = hasID || name == IDField
		q.Sort = append(q.Sort, Sort{Field: name, Direction: d})
	}
	if len(q.Sort) == 0 {
		q.Sort = append(q.Sort, Sort{Field: sc.Entity.DefaultSort, Direction: dir})
		hasID = sc.Entity.DefaultSort == IDField
	}
	if !hasID {
		q.Sort = append(q.Sort, Sort{Field: IDField, Direction: ASC})
	}

	if len(errs) > 0 {
		return ListQuery{}, core.NewValidationError(ErrValidation, errs...)
	}
	return q, nil
}

func flip(d Direction) Direction {
	if d == DESC {
		return ASC
	}
	return DESC
}
