package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Documents.
	mux.HandleFunc("GET /list/", s.handleList)
	mux.HandleFunc("POST /upload/", s.handleUpload)
	mux.HandleFunc("POST /revoke/", s.handleRevoke)
	mux.HandleFunc("PUT /verify/", s.handleVerify)

	// Admin.
	mux.HandleFunc("DELETE /delete/", s.handleDelete)
	mux.HandleFunc("POST /v1/admin/reconcile", s.handleAdminReconcile)
	mux.HandleFunc("POST /v1/admin/topics", s.handleAdminCreateTopic)

	return mux
}
