package server

import (
	"net/http"

	"docanchor/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	channels := s.service.Channels()
	resp := api.InfoResponse{
		SchemaVersion: info.SchemaVersion,
		Network:       s.network,
		Operator:      string(s.service.Operator()),
		AnchorTopicID: string(channels.Anchor),
		RevokeTopicID: string(channels.Revoke),
		TotalRecords:  info.TotalRecords,
		RecordCounts:  info.RecordCounts,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
