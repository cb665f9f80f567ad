package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
)

// errorEnvelope is the boundary shape for every failed request.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// fail translates a service error into {success:false, error, code}
// with the status mapped from its kind.
func fail(c echo.Context, err error) error {
	envelope := errorEnvelope{Error: err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		envelope.Code = string(appErr.Kind)
	}

	return c.JSON(apperr.HTTPStatus(err), envelope)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorEnvelope{Error: message, Code: string(apperr.KindValidation)})
}
