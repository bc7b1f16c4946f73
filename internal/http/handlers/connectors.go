package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/store"
)

type createConnectorRequest struct {
	Name         string            `json:"name"`
	TypeID       string            `json:"type_id"`
	AuthMethod   string            `json:"auth_method"`
	Values       map[string]string `json:"values"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
}

type connectorView struct {
	Name         string            `json:"name"`
	TypeID       string            `json:"type_id"`
	AuthMethod   string            `json:"auth_method"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Config       map[string]string `json:"config"`
	CreatedAt    time.Time         `json:"created_at,omitzero"`
	UpdatedAt    time.Time         `json:"updated_at,omitzero"`
}

// newConnectorView masks the stored config for display.
func newConnectorView(saved store.Saved) (connectorView, error) {
	masked, err := connector.MaskedConfig(saved.Config)
	if err != nil {
		return connectorView{}, err
	}
	return connectorView{
		Name:         saved.Name,
		TypeID:       saved.TypeID,
		AuthMethod:   saved.AuthMethod,
		ResourceType: saved.ResourceType,
		ResourceID:   saved.ResourceID,
		Config:       masked,
		CreatedAt:    saved.CreatedAt,
		UpdatedAt:    saved.UpdatedAt,
	}, nil
}

// HandleListConnectors lists the persisted connector catalog with secrets
// masked.
func (h *Handlers) HandleListConnectors(c *echo.Context) error {
	saved, err := h.Records.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	views := make([]connectorView, 0, len(saved))
	for _, s := range saved {
		view, err := newConnectorView(s)
		if err != nil {
			return writeError(c, err)
		}
		views = append(views, view)
	}
	return c.JSON(http.StatusOK, views)
}

// HandleCreateConnector validates the submitted configuration against the
// registry and persists the resulting record.
func (h *Handlers) HandleCreateConnector(c *echo.Context) error {
	var req createConnectorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "connector name is required"})
	}

	ctx := c.Request().Context()
	inst, err := h.Registry.New(req.TypeID, req.AuthMethod, req.Values, req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	rec, err := inst.Record(req.Name)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Records.Save(ctx, rec); err != nil {
		return writeError(c, err)
	}

	saved, err := h.Records.Get(ctx, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	view, err := newConnectorView(saved)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// HandleGetConnector shows one persisted connector with secrets masked.
func (h *Handlers) HandleGetConnector(c *echo.Context) error {
	saved, err := h.Records.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	view, err := newConnectorView(saved)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// HandleDeleteConnector removes a persisted connector.
func (h *Handlers) HandleDeleteConnector(c *echo.Context) error {
	if err := h.Records.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type verifyRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

type verifyResponse struct {
	ResourceIDs []string `json:"resource_ids"`
}

// HandleVerifyConnector rebuilds the stored connector and checks its
// credentials against the live provider. An unreachable provider yields an
// empty id list, not an error.
func (h *Handlers) HandleVerifyConnector(c *echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	ctx := c.Request().Context()
	saved, err := h.Records.Get(ctx, c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	inst, err := h.Registry.FromRecord(saved.Record)
	if err != nil {
		return writeError(c, err)
	}
	ids, err := inst.Verify(ctx, req.ResourceType, req.ResourceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, verifyResponse{ResourceIDs: ids})
}
