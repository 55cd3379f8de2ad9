package echoapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/journal/core/crud"
)

// bindPayload decodes a JSON object or a urlencoded form body.
// Numbers are kept as json.Number and coerced by the field types later.
func bindPayload(ctx echo.Context) (crud.Payload, error) {
	req := ctx.Request()
	if req.ContentLength == 0 {
		return crud.Payload{}, nil
	}

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		var payload crud.Payload
		dec := json.NewDecoder(req.Body)
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) {
				return crud.Payload{}, nil
			}
			return nil, badBody(err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			if err == nil {
				err = errors.New("unexpected data after the JSON object")
			}
			return nil, badBody(err)
		}
		if payload == nil { // null
			payload = crud.Payload{}
		}
		return payload, nil

	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		form, err := ctx.FormParams()
		if err != nil {
			return nil, badBody(err)
		}
		payload := make(crud.Payload, len(form))
		for k, vs := range form {
			if len(vs) > 0 {
				payload[k] = vs[0]
			}
		}
		return payload, nil
	}
	return nil, echo.ErrUnsupportedMediaType
}

// badBody keeps echo's own errors (body too large) and turns the others into a 400.
func badBody(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}
