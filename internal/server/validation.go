package server

import (
	"mime"
	"strings"

	"docanchor/internal/store"
)

func validateRecordID(id string) bool {
	return store.ValidRecordID(id)
}

// mediaTypeAllowed reports whether contentType passes the configured allowlist.
// An empty allowlist accepts everything.
func (s *Server) mediaTypeAllowed(contentType string) bool {
	if len(s.allowedMediaTypes) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	if _, ok := s.allowedMediaTypes[mediaType]; ok {
		return true
	}
	if major, _, ok := strings.Cut(mediaType, "/"); ok {
		_, ok := s.allowedMediaTypes[major+"/*"]
		return ok
	}
	return false
}
