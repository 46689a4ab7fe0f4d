package server

import "net/http"

// setupRoutes configures all HTTP routes. Hierarchical job IDs occupy three
// path segments: /api/jobs/{supervisor}/{owner}/{uid}.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Service endpoints (public)
	mux.HandleFunc("GET /api/health", s.app.APIHandler.Health)
	mux.HandleFunc("GET /api/version", s.app.APIHandler.Version)

	// Authentication (public)
	mux.HandleFunc("POST /api/auth/login", s.app.AuthHandler.Login)

	// Unified upload
	mux.HandleFunc("POST /api/upload", s.app.UploadHandler.Upload)

	// Jobs
	mux.HandleFunc("GET /api/jobs", s.app.JobHandler.List)
	mux.HandleFunc("GET /api/jobs/{supervisor}/{owner}/{uid}", s.app.JobHandler.Get)
	mux.HandleFunc("GET /api/jobs/{supervisor}/{owner}/{uid}/results", s.app.JobHandler.Results)
	mux.HandleFunc("GET /api/jobs/{supervisor}/{owner}/{uid}/status/stream", s.app.StreamHandler.Stream)
	mux.HandleFunc("GET /api/jobs/{supervisor}/{owner}/{uid}/search", s.app.SearchHandler.Search)

	// Cases
	mux.HandleFunc("GET /api/cases", s.app.CaseHandler.List)
	mux.HandleFunc("GET /api/cases/{name}/jobs", s.app.CaseHandler.Jobs)
	mux.HandleFunc("GET /api/cases/{name}/graph", s.app.CaseHandler.Graph)

	// Admin
	mux.HandleFunc("GET /api/admin/dlq/{queue}", s.app.AdminHandler.ListDLQ)
	mux.HandleFunc("POST /api/admin/dlq/{queue}/requeue", s.app.AdminHandler.RequeueDLQ)
	mux.HandleFunc("GET /api/admin/activity", s.app.AdminHandler.Activity)

	// Status firehose (admin)
	mux.HandleFunc("GET /ws", s.app.WSHandler.Serve)

	return mux
}
