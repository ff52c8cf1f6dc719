package server

import (
	"net/http"

	"docanchor/internal/api"
)

func (s *Server) handleAdminReconcile(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.reconcileLimiter, "reconcile", func() {
		report, err := s.service.Reconcile(r.Context())
		if err != nil {
			s.writeServiceError(w, r, makeAPIError(http.StatusInternalServerError, "internal", ErrCodeReconcileFailed, err))
			return
		}

		resp := api.ReconcileResponse{
			Inserted: report.Inserted(),
			Channels: make([]api.ReconcileChannel, 0, len(report.Channels)),
		}
		for _, ch := range report.Channels {
			resp.Channels = append(resp.Channels, api.ReconcileChannel{
				TopicID:  string(ch.Channel),
				Kind:     string(ch.Kind),
				Scanned:  ch.Scanned,
				Inserted: ch.Inserted,
				Existing: ch.Existing,
				Ignored:  ch.Ignored,
			})
		}
		s.writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleAdminCreateTopic(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.writeLimiter, "ledger write", func() {
		id, err := s.service.CreateChannel(r.Context())
		if err != nil {
			s.writeServiceError(w, r, ledgerFailure(err))
			return
		}
		s.writeJSON(w, http.StatusOK, api.TopicResponse{TopicID: string(id)})
	})
}
