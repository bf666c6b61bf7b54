package httpserver

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"go-dispatch-cache/internal/models"
)

// handleRestful dispatches /api/{path} as a restful request
func (s *Server) handleRestful(w http.ResponseWriter, r *http.Request) {
	var body interface{}
	if err := s.parseBody(w, r, &body); err != nil {
		s.writeErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	rc := models.NewRequestContext(models.OriginRestful, body)
	rc.Set(models.ExtCommand, map[string]any{
		"method": r.Method,
		"path":   mux.Vars(r)["path"],
		"query":  queryMap(r.URL.Query()),
	})

	s.dispatch(w, r, rc)
}

// handleSource dispatches a source command
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	var cmd map[string]any
	if err := s.parseBody(w, r, &cmd); err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if source, _ := cmd["source"].(string); source == "" {
		s.writeErrorResponse(w, "Missing required field: source", http.StatusBadRequest)
		return
	}

	rc := models.NewRequestContext(models.OriginSource, cmd)
	rc.Set(models.ExtCommand, cmd)

	s.dispatch(w, r, rc)
}

// handleJSON dispatches an arbitrary JSON document
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	var doc interface{}
	if err := s.parseBody(w, r, &doc); err != nil || doc == nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s.dispatch(w, r, models.NewRequestContext(models.OriginGenericJSON, doc))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, rc *models.RequestContext) {
	result, err := s.dispatcher.Dispatch(r.Context(), rc)
	if err != nil {
		s.logger.Warn("Dispatch failed", zap.String("origin", string(rc.Origin)), zap.Error(err))
		s.writeErrorResponse(w, fmt.Sprintf("Dispatch error: %v", err), http.StatusInternalServerError)
		return
	}

	if result == nil {
		s.writeErrorResponse(w, "No route", http.StatusNotFound)
		return
	}

	s.writeResponse(w, &DispatchResponse{
		Success: true,
		Result:  result,
	})
}

// handleClearCache broadcasts a clear-cache command for the requested keys
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var req ClearCacheRequest
	if err := s.parseBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if len(req.Keys) == 0 {
		s.writeErrorResponse(w, "Missing required field: keys", http.StatusBadRequest)
		return
	}

	scope := ScopeCluster
	if s.invalidator != nil {
		if err := s.invalidator.PublishClearCache(r.Context(), req.Keys...); err != nil {
			s.logger.Error("Failed to publish clear-cache command", zap.Error(err))
			s.writeErrorResponse(w, "Failed to publish invalidation", http.StatusBadGateway)
			return
		}
	} else {
		scope = ScopeLocal
		s.dispatcher.Cache().Evict(req.Keys...)
	}

	s.writeResponse(w, &ClearCacheResponse{
		Success: true,
		Keys:    len(req.Keys),
		Scope:   scope,
	})
}

// queryMap flattens single-valued parameters to strings
func queryMap(values url.Values) map[string]any {
	query := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			query[k] = v[0]
			continue
		}
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		query[k] = list
	}
	return query
}
