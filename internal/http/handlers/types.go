package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tetherhq/tether/internal/connector"
)

type fieldView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
}

type authMethodView struct {
	MethodID    string      `json:"method_id"`
	Description string      `json:"description,omitempty"`
	Fields      []fieldView `json:"fields"`
}

type resourceTypeView struct {
	ResourceTypeID    string   `json:"resource_type_id"`
	DisplayName       string   `json:"display_name,omitempty"`
	SupportsInstances bool     `json:"supports_instances"`
	SupportsDiscovery bool     `json:"supports_discovery"`
	AuthMethods       []string `json:"auth_methods"`
}

type typeView struct {
	TypeID        string             `json:"type_id"`
	DisplayName   string             `json:"display_name,omitempty"`
	Description   string             `json:"description,omitempty"`
	AutoConfigure bool               `json:"auto_configure"`
	AuthMethods   []authMethodView   `json:"auth_methods"`
	ResourceTypes []resourceTypeView `json:"resource_types"`
}

func newTypeView(reg connector.Registration) typeView {
	spec := reg.Spec
	view := typeView{
		TypeID:        spec.TypeID,
		DisplayName:   spec.DisplayName,
		Description:   spec.Description,
		AutoConfigure: reg.AutoConfigure != nil,
	}
	for _, m := range spec.AuthMethods {
		mv := authMethodView{MethodID: m.MethodID, Description: m.Description, Fields: []fieldView{}}
		for _, f := range m.Schema.Fields {
			mv.Fields = append(mv.Fields, fieldView{
				Name:        f.Name,
				Description: f.Description,
				Required:    f.Required,
				Secret:      f.Secret,
			})
		}
		view.AuthMethods = append(view.AuthMethods, mv)
	}
	for _, rt := range spec.ResourceTypes {
		view.ResourceTypes = append(view.ResourceTypes, resourceTypeView{
			ResourceTypeID:    rt.ResourceTypeID,
			DisplayName:       rt.DisplayName,
			SupportsInstances: rt.SupportsInstances,
			SupportsDiscovery: rt.SupportsDiscovery,
			AuthMethods:       rt.AuthMethods,
		})
	}
	return view
}

// HandleConnectorTypes lists the registered connector types.
func (h *Handlers) HandleConnectorTypes(c *echo.Context) error {
	views := make([]typeView, 0)
	for _, reg := range h.Registry.Types() {
		views = append(views, newTypeView(reg))
	}
	return c.JSON(http.StatusOK, views)
}

// HandleConnectorType shows one connector type.
func (h *Handlers) HandleConnectorType(c *echo.Context) error {
	reg, err := h.Registry.Type(c.Param("type"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newTypeView(reg))
}
