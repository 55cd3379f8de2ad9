package echoapi

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
)

const (
	langParam            = "lang"
	headerAcceptLanguage = "Accept-Language"

	translatorKey = "translator"
	entityKey     = "entity"
)

// localeMiddleware picks the message locale from the lang query param, then Accept-Language.
func localeMiddleware(uni *ut.UniversalTranslator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var prefs []string
			if lang := ctx.QueryParam(langParam); lang != "" {
				prefs = append(prefs, lang)
			}
			if accept := ctx.Request().Header.Get(headerAcceptLanguage); accept != "" {
				prefs = append(prefs, strings.Split(accept, ",")...)
			}
			ctx.Set(translatorKey, core.FindTranslator(uni, prefs...))
			return next(ctx)
		}
	}
}

func getContextTranslator(ctx echo.Context) ut.Translator {
	tr, _ := ctx.Get(translatorKey).(ut.Translator)
	return tr
}

func getContextEntity(ctx echo.Context) *crud.Descriptor {
	d, _ := ctx.Get(entityKey).(*crud.Descriptor)
	return d
}
