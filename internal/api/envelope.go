package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
	"github.com/listenupapp/bookshelf-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the versioned
// envelope. Errors become {"v":1,"success":false,"code":..,"error":..}.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return response.ErrorEnvelope{
			Version: response.Version,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case *domainerrors.Error:
		return response.ErrorEnvelope{
			Version: response.Version,
			Code:    string(body.Code),
			Message: body.Message,
			Details: body.Details,
		}, nil
	case response.Envelope, response.ErrorEnvelope, *response.Envelope, *response.ErrorEnvelope:
		return v, nil
	}

	code, err := strconv.Atoi(status)
	if err != nil {
		code = 200
	}
	return response.Envelope{
		Version: response.Version,
		Success: code < 400,
		Data:    v,
	}, nil
}
