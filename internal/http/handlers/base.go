// Package handlers contains the JSON API handler logic.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/store"
)

// RecordStore is the persistence surface the handlers need.
type RecordStore interface {
	Save(ctx context.Context, rec connector.Record) error
	Get(ctx context.Context, name string) (store.Saved, error)
	List(ctx context.Context) ([]store.Saved, error)
	Delete(ctx context.Context, name string) error
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Registry *connector.Registry
	Records  RecordStore
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps connector failures onto HTTP statuses: bad input is 400,
// unknown names are 404, rejected credentials are 401.
func writeError(c *echo.Context, err error) error {
	status := http.StatusInternalServerError

	var (
		cfgErr      *connector.ConfigurationError
		invalidID   *connector.InvalidResourceIDError
		ambiguous   *connector.AmbiguousResourceError
		notSupport  *connector.NotSupportedError
		unknownType *connector.UnknownTypeError
		authErr     *connector.AuthorizationError
	)
	switch {
	case errors.As(err, &cfgErr), errors.As(err, &invalidID),
		errors.As(err, &ambiguous), errors.As(err, &notSupport):
		status = http.StatusBadRequest
	case errors.As(err, &unknownType), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
