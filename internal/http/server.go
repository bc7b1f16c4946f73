// Package httpapp exposes the connector registry and the persisted
// connector catalog over a JSON API.
package httpapp

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/tetherhq/tether/internal/connector"
	"github.com/tetherhq/tether/internal/http/handlers"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h   *handlers.Handlers
	e   *echo.Echo
	srv *http.Server
}

// NewEchoServer creates a new HTTP server.
func NewEchoServer(reg *connector.Registry, records handlers.RecordStore) *EchoServer {
	h := &handlers.Handlers{Registry: reg, Records: records}
	es := &EchoServer{h: h, e: echo.New()}
	es.registerRoutes()
	return es
}

func (es *EchoServer) registerRoutes() {
	es.e.GET("/healthz", es.h.HandleHealthz)

	api := es.e.Group("/api")
	api.GET("/connector-types", es.h.HandleConnectorTypes)
	api.GET("/connector-types/:type", es.h.HandleConnectorType)
	api.GET("/connectors", es.h.HandleListConnectors)
	api.POST("/connectors", es.h.HandleCreateConnector)
	api.GET("/connectors/:name", es.h.HandleGetConnector)
	api.DELETE("/connectors/:name", es.h.HandleDeleteConnector)
	api.POST("/connectors/:name/verify", es.h.HandleVerifyConnector)
}

// Start starts the HTTP server.
func (es *EchoServer) Start(addr string) error {
	return es.e.Start(addr)
}

// StartServer starts the HTTP server with a custom http.Server.
func (es *EchoServer) StartServer(server *http.Server) error {
	server.Handler = es.e
	es.srv = server
	return server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (es *EchoServer) Shutdown(ctx context.Context) error {
	if es.srv == nil {
		return nil
	}
	return es.srv.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (es *EchoServer) Handler() http.Handler {
	return es.e
}
