package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"docanchor/internal/anchor"
	"docanchor/internal/api"
	"docanchor/internal/models"
)

const (
	notAnchoredMessage = "Document is not anchored yet"
	revokedMessage     = "Document is revoked"
	invalidMessage     = "Document is invalid"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	s.withLimiter(w, r, s.writeLimiter, "ledger write", func() {
		result, err := s.service.Anchor(r.Context(), data)
		if err != nil {
			s.writeServiceError(w, r, mapAnchorError(err))
			return
		}
		s.writeJSON(w, http.StatusOK, api.DocumentResponse{ID: result.ID, Hash: result.Hash})
	})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	s.withLimiter(w, r, s.writeLimiter, "ledger write", func() {
		result, err := s.service.Revoke(r.Context(), data)
		if errors.Is(err, anchor.ErrNotAnchored) {
			s.log().Debug("revoke refused", "reason", err, "request_id", requestIDFromContext(r.Context()))
			s.writeJSON(w, http.StatusOK, api.DocumentResponse{Error: notAnchoredMessage})
			return
		}
		if err != nil {
			s.writeServiceError(w, r, mapAnchorError(err))
			return
		}
		s.writeJSON(w, http.StatusOK, api.DocumentResponse{ID: result.ID, Hash: result.Hash})
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	v, err := s.service.Verify(r.Context(), data)
	if err != nil {
		s.writeServiceError(w, r, mapAnchorError(err))
		return
	}

	resp := api.VerifyResponse{UploadedHash: v.UploadedHash, Status: string(v.Status)}
	switch v.Status {
	case anchor.StatusGenuine:
		resp.VerifySuccess = true
		resp.StoredHash = v.StoredHash
		resp.Timestamp = v.Timestamp.Format()
	case anchor.StatusRevoked:
		resp.Error = revokedMessage
	default:
		s.log().Debug("verify rejected", "status", v.Status, "reason", v.Reason, "hash", v.UploadedHash)
		resp.Error = invalidMessage
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		records []models.AnchorRecord
		err     error
	)
	if hash := r.URL.Query().Get("hash"); hash != "" {
		records, err = s.service.History(r.Context(), hash)
	} else {
		records, err = s.service.List(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, r, mapAnchorError(err))
		return
	}

	resp := make([]api.DocumentSummary, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toDocumentSummary(rec))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("id is required"), ErrCodeMissingRequired))
		return
	}
	// No stored record can carry a malformed id.
	if !validateRecordID(req.ID) {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("record not found"), ErrCodeRecordNotFound))
		return
	}

	n, err := s.service.Delete(r.Context(), req.ID)
	if err != nil {
		s.writeServiceError(w, r, mapAnchorError(err))
		return
	}
	if n == 0 {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("record not found"), ErrCodeRecordNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads the uploaded document from a multipart body. The "file"
// field is preferred; otherwise the first file part is used.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("No files uploaded"), ErrCodeMissingRequired))
			return nil, false
		}
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	header := firstFile(r.MultipartForm, api.UploadField)
	if header == nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("No files uploaded"), ErrCodeMissingRequired))
		return nil, false
	}
	if header.Size == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("uploaded file is empty"), ErrCodeEmptyFile))
		return nil, false
	}
	if contentType := header.Header.Get("Content-Type"); !s.mediaTypeAllowed(contentType) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("media type %q is not allowed", contentType), ErrCodeInvalidMediaType))
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidArgument))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(fmt.Errorf("read upload: %w", err)))
		return nil, false
	}
	if len(data) == 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("uploaded file is empty"), ErrCodeEmptyFile))
		return nil, false
	}
	return data, true
}

func firstFile(form *multipart.Form, preferred string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if files := form.File[preferred]; len(files) > 0 {
		return files[0]
	}
	for _, files := range form.File {
		if len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func toDocumentSummary(rec models.AnchorRecord) api.DocumentSummary {
	return api.DocumentSummary{
		ID:                   rec.ID,
		Kind:                 string(rec.Kind),
		DocumentHash:         rec.DocumentHash,
		TopicID:              rec.TopicID,
		AnchorSequenceNumber: rec.AnchorSequence(),
		RevokeSequenceNumber: rec.RevokeSequence(),
		Timestamp:            rec.Timestamp,
		CreatedAt:            rec.CreatedAt,
	}
}
