package crud

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
)

// Scope is the request scope of an operation: the entity it works on and the locale of the messages.
type Scope struct {
	Entity     *Descriptor
	Translator ut.Translator
}

// Page is the result of a list.
type Page struct {
	Offset     int
	Limit      int
	Count      int
	TotalCount int
	Items      []map[string]interface{}
}

// Service runs the CRUD operations of any described entity.
type Service struct {
	uow       UnitOfWork
	validator *Validator
	limits    PagingLimits
}

func NewService(uow UnitOfWork, v *Validator, limits PagingLimits) *Service {
	return &Service{uow: uow, validator: v, limits: limits}
}

func (svc *Service) List(ctx context.Context, sc Scope, params url.Values) (Page, error) {
	d := sc.Entity
	filterable := d.Filterable()

	payload := make(Payload, len(filterable))
	for _, f := range filterable {
		if vs, ok := params[f.Name]; ok && len(vs) > 0 {
			payload[f.Name] = vs[0]
		}
	}
	filters, vErr := svc.validator.Check(sc, payload, filterable, ModeOptional)
	q, qErr := BuildQuery(sc, params, filters, svc.limits)
	includes, iErr := includedFields(sc, params)
	if err := joinValidation(vErr, qErr, iErr); err != nil {
		return Page{}, err
	}

	var (
		items []map[string]interface{}
		total int
	)
	err := svc.uow.Execute(ctx, func(tx Store) error {
		rows, n, err := tx.FindAndCountAll(ctx, d, q)
		if err != nil {
			return err
		}
		total = n
		items, err = expand(ctx, tx, d, rows, includes)
		return err
	})
	if err != nil {
		return Page{}, errors.Wrapf(storeError(sc, err), "listing %s", d.Name)
	}

	return Page{
		Offset:     q.Paging.Skip,
		Limit:      q.Paging.Limit,
		Count:      len(items),
		TotalCount: total,
		Items:      items,
	}, nil
}

func (svc *Service) Get(ctx context.Context, sc Scope, rawID string) (map[string]interface{}, error) {
	d := sc.Entity
	id, err := parseID(d, rawID)
	if err != nil {
		return nil, err
	}

	var row Row
	err = svc.uow.Execute(ctx, func(tx Store) error {
		row, err = findByID(ctx, tx, d, id, rawID, false)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", d.Name)
	}
	return d.Project(row), nil
}

func (svc *Service) Create(ctx context.Context, sc Scope, payload Payload) (int64, error) {
	d := sc.Entity
	vals, err := svc.validator.Check(sc, payload, d.Fields, ModeDeclared)
	if err != nil {
		return 0, err
	}
	vals = omitEmpty(vals)
	if d.BeforeWrite != nil {
		if err := d.BeforeWrite(sc, vals, nil); err != nil {
			return 0, err
		}
	}

	var id int64
	err = svc.uow.Execute(ctx, func(tx Store) (err error) {
		id, err = tx.Create(ctx, d, vals)
		return err
	})
	if err != nil {
		return 0, errors.Wrapf(storeError(sc, err), "creating %s", d.Name)
	}
	return id, nil
}

func (svc *Service) Update(ctx context.Context, sc Scope, rawID string, payload Payload) error {
	d := sc.Entity
	vals, err := svc.validator.Check(sc, payload, d.Fields, ModeOptional)
	if err != nil {
		return err
	}
	id, err := parseID(d, rawID)
	if err != nil {
		return err
	}

	err = svc.uow.Execute(ctx, func(tx Store) error {
		current, err := findByID(ctx, tx, d, id, rawID, true)
		if err != nil {
			return err
		}
		vals := clearEmpty(vals)
		if d.BeforeWrite != nil {
			if err := d.BeforeWrite(sc, vals, current); err != nil {
				return err
			}
		}
		if len(vals) == 0 {
			return nil
		}
		return tx.Save(ctx, d, id, vals)
	})
	return errors.Wrapf(storeError(sc, err), "updating %s", d.Name)
}

func (svc *Service) Remove(ctx context.Context, sc Scope, rawID string) error {
	d := sc.Entity
	id, err := parseID(d, rawID)
	if err != nil {
		return err
	}

	err = svc.uow.Execute(ctx, func(tx Store) error {
		if _, err := findByID(ctx, tx, d, id, rawID, true); err != nil {
			return err
		}
		return tx.Destroy(ctx, d, id)
	})
	return errors.Wrapf(storeError(sc, err), "removing %s", d.Name)
}

// parseID rejects ids no row can have with a NotFoundError.
func parseID(d *Descriptor, rawID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewNotFoundError(d.Label, rawID)
	}
	return id, nil
}

func findByID(ctx context.Context, tx Store, d *Descriptor, id int64, rawID string, forUpdate bool) (Row, error) {
	row, err := tx.FindByID(ctx, d, id, forUpdate)
	if errors.Is(err, ErrNoRow) {
		return nil, core.NewNotFoundError(d.Label, rawID)
	}
	return row, err
}

// includedFields resolves the include param, a comma-separated list of relations.
func includedFields(sc Scope, params url.Values) ([]Field, error) {
	var (
		flds []Field
		errs []core.FieldError
		seen = make(map[string]bool)
	)
	for _, name := range strings.Split(params.Get(ParamInclude), ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		found := false
		for _, f := range sc.Entity.Fields {
			if _, ok := sc.Entity.Ref(f.Name); ok && f.Relation() == name {
				flds = append(flds, f)
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, core.FieldError{
				Field: ParamInclude,
				Error: core.T(sc.Translator, core.MsgUnknownInclude, name),
			})
		}
	}
	if len(errs) > 0 {
		return nil, core.NewValidationError(ErrValidation, errs...)
	}
	return flds, nil
}

// expand projects rows and embeds the projection of the rows their included fields point to.
// A dangling or empty reference is embedded as null.
func expand(ctx context.Context, tx Store, d *Descriptor, rows []Row, includes []Field) ([]map[string]interface{}, error) {
	related := make(map[string]map[int64]map[string]interface{}, len(includes))
	items := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		obj := d.Project(row)
		for _, f := range includes {
			target, _ := d.Ref(f.Name)
			raw, ok := coerce(row[f.Name], TypeInt)
			if !ok {
				obj[f.Relation()] = nil
				continue
			}
			id := raw.(int64)

			byID, ok := related[target.Name]
			if !ok {
				byID = make(map[int64]map[string]interface{})
				related[target.Name] = byID
			}
			rel, ok := byID[id]
			if !ok {
				relRow, err := tx.FindByID(ctx, target, id, false)
				switch {
				case errors.Is(err, ErrNoRow):
				case err != nil:
					return nil, err
				default:
					rel = target.Project(relRow)
				}
				byID[id] = rel
			}
			if rel == nil {
				obj[f.Relation()] = nil
			} else {
				obj[f.Relation()] = rel
			}
		}
		items = append(items, obj)
	}
	return items, nil
}

// storeError turns the field errors of a store into localized validation errors.
func storeError(sc Scope, err error) error {
	if err == nil {
		return nil
	}
	var (
		sfErr  *SortFieldError
		rfdErr *RequiredFieldError
	)
	switch {
	case errors.As(err, &sfErr):
		return core.NewValidationError(err, core.FieldError{
			Field: ParamSort,
			Error: core.T(sc.Translator, core.MsgUnknownSort, sfErr.Field),
		})
	case errors.As(err, &rfdErr):
		label := rfdErr.Field
		if f, ok := sc.Entity.Field(rfdErr.Field); ok {
			label = core.T(sc.Translator, f.Label)
		}
		return core.NewValidationError(err, core.FieldError{
			Field: rfdErr.Field,
			Error: core.T(sc.Translator, core.MsgRequired, label),
		})
	}
	return err
}

// joinValidation merges the fields of validation errors; any other error wins.
func joinValidation(errs ...error) error {
	var flds []core.FieldError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			return err
		}
		flds = append(flds, vErr.Fields...)
	}
	if len(flds) == 0 {
		return nil
	}
	return core.NewValidationError(ErrValidation, flds...)
}
