package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Every error response is a JSON object with a localized "error" message.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		tr := getContextTranslator(ctx)
		var code int
		message := echo.Map{}

		cause := errors.Cause(err)
		if herr, ok := cause.(*echo.HTTPError); ok {
			if ierr, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = ierr
			}
			code = herr.Code
			message["error"] = httpErrorMessage(tr, herr)
		} else {
			switch core.KindOf(err) {
			case core.KindValidationFailed:
				verr := cause.(*core.ValidationError)
				code = http.StatusBadRequest
				message["error"] = core.T(tr, core.MsgValidationFailed)
				if len(verr.Fields) > 0 {
					message["fields"] = verr.FieldMessages()
				}
			case core.KindNotFound:
				nerr := cause.(*core.NotFoundError)
				code = http.StatusNotFound
				message["error"] = core.T(tr, core.MsgNotFound, core.T(tr, nerr.Entity))
				if nerr.ID != "" {
					message["id"] = nerr.ID
				}
			case core.KindConflict:
				cerr := cause.(*core.ConflictError)
				code = http.StatusConflict
				msg := core.T(tr, core.MsgConflict, fieldLabel(ctx, tr, cerr.Field))
				message["error"] = msg
				if cerr.Field != "" {
					message["fields"] = map[string][]string{cerr.Field: {msg}}
				}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				message["error"] = core.T(tr, core.MsgInternal)

				req := ctx.Request()
				extras := map[string]interface{}{
					"requestID": ctx.Response().Header().Get(echo.HeaderXRequestID),
				}
				logger.Error(http.StatusText(code), err, extras, req)

				if ctx.Echo().Debug {
					message["detail"] = err.Error()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func httpErrorMessage(tr ut.Translator, err *echo.HTTPError) string {
	switch err.Code {
	case http.StatusNotFound:
		return core.T(tr, core.MsgNotFound, core.T(tr, core.LabelResource))
	case http.StatusMethodNotAllowed:
		return core.T(tr, core.MsgMethodNotAllowed)
	case http.StatusRequestEntityTooLarge:
		return core.T(tr, core.MsgTooLarge)
	case http.StatusUnsupportedMediaType:
		return core.T(tr, core.MsgUnsupportedMedia)
	case http.StatusBadRequest:
		return core.T(tr, core.MsgBadRequest)
	}
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return http.StatusText(err.Code)
}

// fieldLabel is the localized label of a field of the entity being served.
func fieldLabel(ctx echo.Context, tr ut.Translator, field string) string {
	if d := getContextEntity(ctx); d != nil {
		if f, ok := d.Field(field); ok {
			return core.T(tr, f.Label)
		}
		if field == "" {
			return core.T(tr, d.Label)
		}
	}
	if field == "" {
		return core.T(tr, core.LabelResource)
	}
	return field
}
