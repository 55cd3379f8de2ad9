package crud_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/storage/database/inmem"
)

var (
	validate = core.NewValidator()
	limits   = crud.PagingLimits{Default: 20, Max: 100}
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// testRegistry has a role with a required name and a note with optional fields of every kind.
func testRegistry(t *testing.T) *crud.Registry {
	t.Helper()
	reg, err := crud.NewRegistry(validate,
		&crud.Descriptor{
			Name: "role", Label: "Role", Table: "roles", DefaultSort: "name",
			Fields: []crud.Field{
				{Name: "name", Label: "Name", Type: crud.TypeString, Required: true,
					MinLength: intPtr(1), MaxLength: intPtr(255), Filter: crud.FilterStartsWith},
			},
		},
		&crud.Descriptor{
			Name: "note", Label: "Note", Table: "notes", DefaultSort: "id",
			Fields: []crud.Field{
				{Name: "name", Label: "Name", Type: crud.TypeString, MaxLength: intPtr(255), Filter: crud.FilterContains},
				{Name: "score", Label: "Value", Type: crud.TypeInt, Min: floatPtr(1), Max: floatPtr(12), Filter: crud.FilterExact},
				{Name: "email", Label: "Email", Type: crud.TypeString, Format: "email"},
				{Name: "done", Label: "Done", Type: crud.TypeBool},
				{Name: "secret", Label: "Password", Type: crud.TypeString, Hidden: true},
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func newScope(t *testing.T, reg *crud.Registry, entity, locale string) crud.Scope {
	t.Helper()
	uni, err := core.NewTranslator("en", "ru")
	require.NoError(t, err)
	d, ok := reg.Get(entity)
	require.True(t, ok, entity)
	return crud.Scope{Entity: d, Translator: core.FindTranslator(uni, locale)}
}

// recorder counts the writes that reach the store.
type recorder struct {
	crud.UnitOfWork
	created []crud.Values
	saved   []crud.Values
}

type recordingStore struct {
	crud.Store
	rec *recorder
}

func (r *recorder) Execute(ctx context.Context, fn func(tx crud.Store) error) error {
	return r.UnitOfWork.Execute(ctx, func(tx crud.Store) error {
		return fn(&recordingStore{Store: tx, rec: r})
	})
}

func (s *recordingStore) Create(ctx context.Context, d *crud.Descriptor, vals crud.Values) (int64, error) {
	s.rec.created = append(s.rec.created, vals)
	return s.Store.Create(ctx, d, vals)
}

func (s *recordingStore) Save(ctx context.Context, d *crud.Descriptor, id int64, vals crud.Values) error {
	s.rec.saved = append(s.rec.saved, vals)
	return s.Store.Save(ctx, d, id, vals)
}

func newService() (*crud.Service, *recorder) {
	rec := &recorder{UnitOfWork: inmemdb.Open()}
	return crud.NewService(rec, crud.NewValidator(validate), limits), rec
}

func fieldMessages(t *testing.T, err error) map[string][]string {
	t.Helper()
	require.Equal(t, core.KindValidationFailed, core.KindOf(err), "%v", err)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr.FieldMessages()
}
