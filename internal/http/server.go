// README: API gateway; registers HTTP routes and delegates to the rider map session.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridemap/internal/http/handlers"
	"ridemap/internal/http/middleware"
	"ridemap/internal/session"
)

type ServerDeps struct {
	Session *session.Session
}

type Server struct {
	session *session.Session
}

func NewServer(deps ServerDeps) *Server {
	return &Server{session: deps.Session}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	fleetHandler := handlers.NewFleetHandler(s.session)
	r.GET("/api/fleet", fleetHandler.List)
	r.GET("/api/fleet/nearby", fleetHandler.Nearby)
	r.GET("/api/vehicles/:id", fleetHandler.Get)
	r.POST("/api/vehicles/:id/tap", fleetHandler.Tap)

	selectionHandler := handlers.NewSelectionHandler(s.session)
	r.GET("/api/selection", selectionHandler.Get)
	r.DELETE("/api/selection", selectionHandler.Clear)
	r.GET("/api/rider", selectionHandler.Rider)
	r.GET("/api/panel", selectionHandler.Panel)
	r.GET("/api/proximity", selectionHandler.Proximity)

	r.GET("/ws", handlers.NewStreamHandler(s.session).Serve)
	return r
}
