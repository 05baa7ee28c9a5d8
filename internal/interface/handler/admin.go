package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tripmail-service/internal/domain/entity"
	"tripmail-service/internal/domain/repository"
	"tripmail-service/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type operatorKey struct{}

// operatorAuth resolves the bearer token to an operator name. With no
// tokens configured every admin request is refused.
func (s *Server) operatorAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		operator := s.lookupOperator(token)
		if operator == "" {
			s.respondError(w, http.StatusUnauthorized, "operator token required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), operatorKey{}, operator)))
	})
}

func (s *Server) lookupOperator(token string) string {
	if token == "" {
		return ""
	}
	for candidate, operator := range s.opts.OperatorTokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return operator
		}
	}
	return ""
}

func operatorFrom(ctx context.Context) string {
	operator, _ := ctx.Value(operatorKey{}).(string)
	return operator
}

func quarantineFilter(r *http.Request) entity.QuarantineFilter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	return entity.QuarantineFilter{
		Status:    strings.ToUpper(q.Get("status")),
		AccountID: q.Get("accountId"),
		Limit:     limit,
	}
}

func (s *Server) handleListQuarantine(w http.ResponseWriter, r *http.Request) {
	entries, err := s.quarantine.List(r.Context(), quarantineFilter(r))
	if err != nil {
		s.logger.Error("List quarantine failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list quarantine")
		return
	}
	if entries == nil {
		entries = []*entity.QuarantineEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleExportQuarantine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="quarantine.csv"`)
	if err := s.quarantine.ExportCSV(r.Context(), quarantineFilter(r), w); err != nil {
		s.logger.Error("Export quarantine failed", "error", err)
	}
}

func (s *Server) handleGetQuarantine(w http.ResponseWriter, r *http.Request) {
	entry, err := s.quarantine.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "quarantine entry not found")
		return
	}
	if err != nil {
		s.logger.Error("Get quarantine entry failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load quarantine entry")
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleForceReplay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	operator := operatorFrom(r.Context())

	result, err := s.quarantine.ForceReplay(r.Context(), id, operator)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, ingestResponse{
			Success:  true,
			TripID:   result.TripID,
			Created:  result.Created,
			State:    string(result.State),
			Warnings: result.Warnings,
		})
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "quarantine entry not found")
	case errors.Is(err, repository.ErrAlreadyForced), errors.Is(err, repository.ErrReplayInProgress):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrReplayFailed):
		s.respondJSON(w, http.StatusUnprocessableEntity, ingestResponse{
			Success: false,
			Error:   result.Message(),
			State:   string(result.State),
		})
	default:
		s.logger.Error("Forced replay failed", "quarantineID", id, "operator", operator, "error", err)
		s.respondError(w, http.StatusInternalServerError, "forced replay failed")
	}
}

func (s *Server) handleListUploadLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.uploadLogs.ListByAccount(r.Context(), r.URL.Query().Get("accountId"), limit)
	if err != nil {
		s.logger.Error("List upload logs failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list upload logs")
		return
	}
	if logs == nil {
		logs = []*entity.UploadLog{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
