package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

func componentID(r *http.Request) string { return chi.URLParam(r, "componentID") }

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Extract(r.Context(), taskID(r))
	s.respond(w, r, "component extraction", st, err)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.Select(taskID(r), componentID(r))
	if err != nil {
		s.fail(w, r, "", err, &res.State)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.sessions.Edit(r.Context(), taskID(r), componentID(r), req.Content)
	s.respond(w, r, "", st, err)
}

// handleMutate stages a rewrite, expansion or shortening of a component.
func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	action := chi.URLParam(r, "action")
	st, err := s.sessions.Mutate(r.Context(), taskID(r), componentID(r), action, req.Prompt)
	s.respond(w, r, "content "+action, st, err)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Recommend(r.Context(), taskID(r), componentID(r))
	s.respond(w, r, "stylebook recommendation", st, err)
}

func (s *Server) handleQuickfix(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.sessions.ApplyQuickfix(r.Context(), taskID(r), req.Index)
	s.respond(w, r, "", st, err)
}

func (s *Server) handleChangeIntent(w http.ResponseWriter, r *http.Request) {
	dimension, err := url.PathUnescape(chi.URLParam(r, "dimension"))
	if err != nil {
		jsonError(w, "invalid dimension", http.StatusBadRequest)
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil || req.Value == "" {
		jsonError(w, "value is required", http.StatusBadRequest)
		return
	}
	st, err := s.sessions.ChangeIntent(r.Context(), taskID(r), dimension, req.Value)
	s.respond(w, r, "intent variation", st, err)
}

func (s *Server) handleApplyPreview(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.ApplyPreview(r.Context(), taskID(r))
	s.respond(w, r, "", st, err)
}

func (s *Server) handleDiscardPreview(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.DiscardPreview(taskID(r))
	s.respond(w, r, "", st, err)
}

func (s *Server) handleResolveEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.sessions.ResolveEdit(r.Context(), taskID(r), req.Reason)
	s.respond(w, r, "edit reason saving", st, err)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FactorChoices json.RawMessage `json:"factorChoices"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.FactorChoices) == 0 {
		req.FactorChoices = json.RawMessage(`{}`)
	}
	st, err := s.sessions.Regenerate(r.Context(), taskID(r), req.FactorChoices)
	s.respond(w, r, "draft regeneration", st, err)
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.GenerateAnchors(r.Context(), taskID(r))
	s.respond(w, r, "anchor generation", st, err)
}
