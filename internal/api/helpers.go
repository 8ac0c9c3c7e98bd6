package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lattice/internal/lattice"
)

const (
	maxBodyBytes    = 64 << 20
	mimeOctetStream = "application/octet-stream"

	// maxServedTimesteps keeps a served image within the size of a request body.
	maxServedTimesteps = maxBodyBytes / lattice.RecordingElementSize
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeInvalid(c *echo.Context, err error) error {
	var ire invalidRequestError
	if errors.As(err, &ire) {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", ire.msg, ire.param, "")
	}
	return writeBadRequest(c, err.Error())
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, newInvalidRequest("", fmt.Sprintf("decode request: %v", err))
	}
	return out, nil
}
