package api

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/routewise/routewise/internal/service"
)

// Server wraps the HTTP server and mux for the RouteWise API.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new API server wired with all routes.
func NewServer(
	listenAddress string,
	port int,
	adminToken string,
	systemInfo service.SystemInfo,
	core *service.Core,
	apiMaxBodyBytes int64,
) *Server {
	mux := http.NewServeMux()

	// Public (no auth)
	mux.Handle("GET /healthz", HandleHealthz())

	// Authenticated routes
	authed := http.NewServeMux()
	authed.Handle("GET /api/v1/system/info", HandleSystemInfo(systemInfo))

	// Tenant-scoped routing operations.
	tenanted := http.NewServeMux()
	tenanted.Handle("POST /api/v1/routes/optimize", HandleOptimize(core))
	tenanted.Handle("POST /api/v1/routes/days/{day}", HandleSaveDayRoutes(core))
	tenanted.Handle("GET /api/v1/routes/days/{day}", HandleGetDayRoutes(core))
	tenanted.Handle("DELETE /api/v1/routes/days/{day}", HandleDeleteDayRoutes(core))
	tenanted.Handle("GET /api/v1/routes/{route_id}", HandleGetRoute(core))
	tenanted.Handle("PATCH /api/v1/routes/{route_id}/stops", HandleReorderStops(core))
	tenanted.Handle("POST /api/v1/stops/{stop_id}/actions/move", HandleMoveStop(core))
	tenanted.Handle("POST /api/v1/temp-assignments", HandleSetTempAssignment(core))
	tenanted.Handle("GET /api/v1/temp-assignments", HandleListTempAssignments(core))
	authed.Handle("/api/v1/", TenantMiddleware(tenanted))

	limitedAuthed := RequestBodyLimitMiddleware(apiMaxBodyBytes, authed)
	mux.Handle("/api/", AuthMiddleware(adminToken, limitedAuthed))

	srv := &http.Server{
		Addr:    net.JoinHostPort(listenAddress, strconv.Itoa(port)),
		Handler: mux,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
	}
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}
