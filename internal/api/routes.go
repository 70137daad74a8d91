package api

import (
	"net/http"

	"tipline/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth)

	// Report submission and review
	s.router.HandleFunc("/api/v1/reports", s.handleReports)       // GET list, POST submit
	s.router.HandleFunc("/api/v1/reports/", s.handleReportRoutes) // GET /:publicID, PATCH /:publicID/status

	// Reference data (served through the result cache)
	s.router.HandleFunc("/api/v1/locations", s.handleLocations)
	s.router.HandleFunc("/api/v1/targets", s.handleTargets)

	// Sessions
	s.router.HandleFunc("/api/v1/login", s.handleLogin)
	s.router.HandleFunc("/api/v1/logout", s.handleLogout)

	// Debug console
	if s.profiler != nil {
		s.router.HandleFunc("/debug/queries", s.handleDebugQueries)
		s.router.HandleFunc("/debug/queries.json", s.handleDebugQueriesJSON)
	}

	s.router.HandleFunc("/", s.handleRoot)
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	endpoints := []string{
		"GET /healthz - Health check",
		"GET /api/v1/reports - List reports",
		"POST /api/v1/reports - Submit a report",
		"GET /api/v1/reports/:publicID - Get a report",
		"PATCH /api/v1/reports/:publicID/status - Change report status (auth)",
		"GET /api/v1/locations - List locations",
		"GET /api/v1/targets?location=ID - List targets for a location",
		"POST /api/v1/login - Exchange credentials for a token",
		"POST /api/v1/logout - Revoke the presented token",
	}
	if s.profiler != nil {
		endpoints = append(endpoints,
			"GET /debug/queries - Query console (HTML)",
			"GET /debug/queries.json - Query console (JSON)")
	}

	WriteJSON(w, map[string]any{
		"name":      "tipline HTTP API",
		"version":   version.Version,
		"endpoints": endpoints,
	}, http.StatusOK)
}
