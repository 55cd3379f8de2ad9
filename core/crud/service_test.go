package crud_test

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

func createRoles(t *testing.T, svc *crud.Service, sc crud.Scope, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := svc.Create(context.Background(), sc, crud.Payload{"name": name})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func itemNames(page crud.Page) []string {
	names := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		names = append(names, item["name"].(string))
	}
	return names
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	sc := newScope(t, testRegistry(t), "role", "en")

	names := make([]string, 25)
	for i := range names {
		names[i] = fmt.Sprintf("role %02d", 24-i)
	}
	createRoles(t, svc, sc, names...)

	t.Run("count is min(totalCount, limit)", func(t *testing.T) {
		for _, limit := range []int{1, 10, 20, 25, 30, 100} {
			page, err := svc.List(ctx, sc, url.Values{"limit": {strconv.Itoa(limit)}})
			require.NoError(t, err)
			assert.Equal(t, 25, page.TotalCount)
			assert.Equal(t, min(25, limit), page.Count)
			assert.Len(t, page.Items, page.Count)
			assert.Equal(t, limit, page.Limit)
		}
	})

	t.Run("default sort and paging", func(t *testing.T) {
		page, err := svc.List(ctx, sc, url.Values{})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Offset)
		assert.Equal(t, 20, page.Limit)
		assert.Equal(t, 20, page.Count)
		assert.Equal(t, "role 00", page.Items[0]["name"])
		assert.Equal(t, "role 19", page.Items[19]["name"])
	})

	t.Run("offset past the end", func(t *testing.T) {
		page, err := svc.List(ctx, sc, url.Values{"offset": {"50"}})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Count)
		assert.Equal(t, 25, page.TotalCount)
		assert.NotNil(t, page.Items)
	})

	t.Run("filter", func(t *testing.T) {
		page, err := svc.List(ctx, sc, url.Values{"name": {"role 1"}, "direction": {"desc"}})
		require.NoError(t, err)
		assert.Equal(t, 10, page.TotalCount)
		assert.Equal(t, "role 19", page.Items[0]["name"])
	})

	t.Run("filter too long", func(t *testing.T) {
		_, err := svc.List(ctx, sc, url.Values{"name": {strings.Repeat("x", 256)}, "direction": {"sideways"}})
		msgs := fieldMessages(t, err)
		assert.Contains(t, msgs, "name")
		assert.Contains(t, msgs, "direction")
	})

	t.Run("unknown sort field", func(t *testing.T) {
		_, err := svc.List(ctx, sc, url.Values{"sort": {"nope"}})
		assert.Equal(t, map[string][]string{"sort": {"Cannot sort by nope."}}, fieldMessages(t, err))
	})
}

func TestService_ListDirectionIsCaseInsensitive(t *testing.T) {
	svc, _ := newService()
	sc := newScope(t, testRegistry(t), "role", "en")
	createRoles(t, svc, sc, "b", "a", "c")

	for _, dir := range []string{"asc", "ASC", "Asc"} {
		page, err := svc.List(context.Background(), sc, url.Values{"direction": {dir}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, itemNames(page), dir)
	}
	for _, dir := range []string{"desc", "DESC", "Desc"} {
		page, err := svc.List(context.Background(), sc, url.Values{"direction": {dir}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, itemNames(page), dir)
	}
}

func TestService_Projection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	sc := newScope(t, testRegistry(t), "note", "en")

	id, err := svc.Create(ctx, sc, crud.Payload{"name": "n", "secret": "s3cr3t"})
	require.NoError(t, err)

	obj, err := svc.Get(ctx, sc, strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": id, "name": "n", "score": nil, "email": nil, "done": nil}, obj)

	page, err := svc.List(ctx, sc, url.Values{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.NotContains(t, page.Items[0], "secret")
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(t)

	t.Run("name too long performs no write", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "role", "en")
		_, err := svc.Create(ctx, sc, crud.Payload{"name": strings.Repeat("a", 256)})
		assert.Equal(t, core.KindValidationFailed, core.KindOf(err))
		assert.Empty(t, rec.created)

		page, err := svc.List(ctx, sc, url.Values{})
		require.NoError(t, err)
		assert.Equal(t, 0, page.TotalCount)
	})

	t.Run("empty fields are omitted", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "note", "en")
		id, err := svc.Create(ctx, sc, crud.Payload{"name": "", "score": "4", "email": nil})
		require.NoError(t, err)
		assert.Equal(t, int64(1), id)
		require.Len(t, rec.created, 1)
		assert.Equal(t, crud.Values{"score": int64(4)}, rec.created[0])
	})

	t.Run("write hook", func(t *testing.T) {
		reg := testRegistry(t)
		sc := newScope(t, reg, "note", "en")
		sc.Entity.BeforeWrite = func(sc crud.Scope, vals crud.Values, current crud.Row) error {
			assert.Nil(t, current)
			vals["secret"] = strings.ToUpper(vals["secret"].(string))
			return nil
		}
		svc, rec := newService()
		_, err := svc.Create(ctx, sc, crud.Payload{"secret": "abc"})
		require.NoError(t, err)
		assert.Equal(t, "ABC", rec.created[0]["secret"])
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	sc := newScope(t, testRegistry(t), "role", "en")
	ids := createRoles(t, svc, sc, "admin")

	obj, err := svc.Get(ctx, sc, strconv.FormatInt(ids[0], 10))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": ids[0], "name": "admin"}, obj)

	for _, id := range []string{"2", "0", "-1", "abc", ""} {
		_, err := svc.Get(ctx, sc, id)
		assert.Equal(t, core.KindNotFound, core.KindOf(err), id)
		var nfErr *core.NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "Role", nfErr.Entity)
		assert.Equal(t, id, nfErr.ID)
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(t)

	t.Run("missing id leaves the store unchanged", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "role", "en")
		ids := createRoles(t, svc, sc, "admin")

		err := svc.Update(ctx, sc, "99", crud.Payload{"name": "other"})
		assert.Equal(t, core.KindNotFound, core.KindOf(err))
		assert.Empty(t, rec.saved)

		obj, err := svc.Get(ctx, sc, strconv.FormatInt(ids[0], 10))
		require.NoError(t, err)
		assert.Equal(t, "admin", obj["name"])
	})

	t.Run("all fields optional", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "role", "en")
		ids := createRoles(t, svc, sc, "admin")

		require.NoError(t, svc.Update(ctx, sc, strconv.FormatInt(ids[0], 10), crud.Payload{}))
		assert.Empty(t, rec.saved)

		require.NoError(t, svc.Update(ctx, sc, strconv.FormatInt(ids[0], 10), crud.Payload{"name": "root"}))
		obj, err := svc.Get(ctx, sc, strconv.FormatInt(ids[0], 10))
		require.NoError(t, err)
		assert.Equal(t, "root", obj["name"])
	})

	t.Run("empty field clears it", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "note", "en")
		id, err := svc.Create(ctx, sc, crud.Payload{"name": "keep me?", "score": 3})
		require.NoError(t, err)
		rawID := strconv.FormatInt(id, 10)

		require.NoError(t, svc.Update(ctx, sc, rawID, crud.Payload{"name": "", "score": nil}))
		assert.Equal(t, []crud.Values{{"name": nil, "score": nil}}, rec.saved)

		obj, err := svc.Get(ctx, sc, rawID)
		require.NoError(t, err)
		assert.Nil(t, obj["name"])
		assert.Nil(t, obj["score"])
	})

	t.Run("clearing a required field", func(t *testing.T) {
		svc, _ := newService()
		sc := newScope(t, reg, "role", "en")
		ids := createRoles(t, svc, sc, "admin")
		rawID := strconv.FormatInt(ids[0], 10)

		err := svc.Update(ctx, sc, rawID, crud.Payload{"name": ""})
		assert.Equal(t, map[string][]string{"name": {"Name is required."}}, fieldMessages(t, err))

		obj, err := svc.Get(ctx, sc, rawID)
		require.NoError(t, err)
		assert.Equal(t, "admin", obj["name"])
	})

	t.Run("invalid payload", func(t *testing.T) {
		svc, rec := newService()
		sc := newScope(t, reg, "note", "en")
		id, err := svc.Create(ctx, sc, crud.Payload{"score": 3})
		require.NoError(t, err)

		err = svc.Update(ctx, sc, strconv.FormatInt(id, 10), crud.Payload{"score": 30})
		assert.Equal(t, map[string][]string{"score": {"Value must be from 1 to 12."}}, fieldMessages(t, err))
		assert.Empty(t, rec.saved)
	})

	t.Run("failing hook rolls back", func(t *testing.T) {
		reg := testRegistry(t)
		sc := newScope(t, reg, "note", "en")
		svc, rec := newService()
		id, err := svc.Create(ctx, sc, crud.Payload{"name": "before"})
		require.NoError(t, err)

		hookErr := errors.New("hook failed")
		sc.Entity.BeforeWrite = func(sc crud.Scope, vals crud.Values, current crud.Row) error {
			assert.Equal(t, "before", current["name"])
			return hookErr
		}
		err = svc.Update(ctx, sc, strconv.FormatInt(id, 10), crud.Payload{"name": "after"})
		assert.Equal(t, hookErr, errors.Cause(err))
		assert.Empty(t, rec.saved)
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	sc := newScope(t, testRegistry(t), "role", "en")
	ids := createRoles(t, svc, sc, "admin", "guest")
	rawID := strconv.FormatInt(ids[0], 10)

	require.NoError(t, svc.Remove(ctx, sc, rawID))

	_, err := svc.Get(ctx, sc, rawID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	err = svc.Remove(ctx, sc, rawID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	page, err := svc.List(ctx, sc, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, []string{"guest"}, itemNames(page))
}

func TestService_ListInclude(t *testing.T) {
	ctx := context.Background()
	reg, err := crud.NewRegistry(validate,
		&crud.Descriptor{
			Name: "role", Label: "Role", Table: "roles", DefaultSort: "name",
			Fields: []crud.Field{{Name: "name", Label: "Name", Type: crud.TypeString, Required: true}},
		},
		&crud.Descriptor{
			Name: "member", Label: "Member", Table: "members", DefaultSort: "name",
			Fields: []crud.Field{
				{Name: "name", Label: "Name", Type: crud.TypeString, Required: true},
				{Name: "secret", Label: "Password", Type: crud.TypeString, Hidden: true},
				{Name: "role_id", Label: "Role", Type: crud.TypeInt, Ref: "role", Filter: crud.FilterExact},
			},
		},
	)
	require.NoError(t, err)
	svc, _ := newService()
	roleSc := newScope(t, reg, "role", "en")
	memberSc := newScope(t, reg, "member", "en")

	roleIDs := createRoles(t, svc, roleSc, "admin", "teacher")
	for _, p := range []crud.Payload{
		{"name": "Ann", "secret": "s3cret", "role_id": roleIDs[1]},
		{"name": "Bob", "role_id": roleIDs[0]},
		{"name": "Cid", "role_id": 99},
		{"name": "Dan"},
	} {
		_, err := svc.Create(ctx, memberSc, p)
		require.NoError(t, err)
	}

	t.Run("related rows are embedded", func(t *testing.T) {
		page, err := svc.List(ctx, memberSc, url.Values{"include": {"role"}})
		require.NoError(t, err)
		require.Equal(t, 4, page.Count)
		assert.Equal(t, map[string]interface{}{"id": roleIDs[1], "name": "teacher"}, page.Items[0]["role"])
		assert.Equal(t, map[string]interface{}{"id": roleIDs[0], "name": "admin"}, page.Items[1]["role"])
		assert.Nil(t, page.Items[2]["role"])
		assert.Nil(t, page.Items[3]["role"])
		assert.Equal(t, int64(99), page.Items[2]["role_id"])
		assert.NotContains(t, page.Items[0], "secret")
	})

	t.Run("not embedded by default", func(t *testing.T) {
		page, err := svc.List(ctx, memberSc, url.Values{})
		require.NoError(t, err)
		assert.NotContains(t, page.Items[0], "role")
	})

	t.Run("unknown relations", func(t *testing.T) {
		_, err := svc.List(ctx, memberSc, url.Values{"include": {"role, name,lol"}})
		assert.Equal(t, map[string][]string{"include": {"Cannot include name.", "Cannot include lol."}}, fieldMessages(t, err))
	})
}
