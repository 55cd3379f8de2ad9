package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/journal/core/crud"
)

// entityAPI serves the CRUD routes of one entity.
type entityAPI struct {
	entity  *crud.Descriptor
	service *crud.Service
}

func registerEntityAPI(g *echo.Group, d *crud.Descriptor, svc *crud.Service) {
	api := entityAPI{entity: d, service: svc}

	path := "/" + d.Name
	g.GET(path, api.list)
	g.POST(path, api.create)
	g.GET(path+"/:id", api.retrieve)
	g.PUT(path+"/:id", api.update)
	g.DELETE(path+"/:id", api.destroy)
}

// scope also records the entity for the error handler.
func (api entityAPI) scope(ctx echo.Context) crud.Scope {
	ctx.Set(entityKey, api.entity)
	return crud.Scope{Entity: api.entity, Translator: getContextTranslator(ctx)}
}

func (api entityAPI) list(ctx echo.Context) error {
	page, err := api.service.List(ctx.Request().Context(), api.scope(ctx), ctx.QueryParams())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"offset":        page.Offset,
		"limit":         page.Limit,
		"count":         page.Count,
		"totalCount":    page.TotalCount,
		api.entity.Name: page.Items,
	})
}

func (api entityAPI) retrieve(ctx echo.Context) error {
	obj, err := api.service.Get(ctx.Request().Context(), api.scope(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{api.entity.Name: obj})
}

func (api entityAPI) create(ctx echo.Context) error {
	sc := api.scope(ctx)
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}
	id, err := api.service.Create(ctx.Request().Context(), sc, payload)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"id": id})
}

func (api entityAPI) update(ctx echo.Context) error {
	sc := api.scope(ctx)
	payload, err := bindPayload(ctx)
	if err != nil {
		return err
	}
	if err = api.service.Update(ctx.Request().Context(), sc, ctx.Param("id"), payload); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api entityAPI) destroy(ctx echo.Context) error {
	if err := api.service.Remove(ctx.Request().Context(), api.scope(ctx), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
