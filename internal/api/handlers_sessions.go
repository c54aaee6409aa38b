package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/draftlens/internal/document"
	"github.com/dgallion1/draftlens/internal/parser"
	"github.com/dgallion1/draftlens/internal/render"
	"github.com/dgallion1/draftlens/internal/session"
)

// decodeBody reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func taskID(r *http.Request) string { return chi.URLParam(r, "taskID") }

// respond writes the session state, or the failure with the state attached.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, subject string, st session.State, err error) {
	if err != nil {
		s.fail(w, r, subject, err, &st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserTask string `json:"userTask"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.sessions.Open(r.Context(), taskID(r), req.UserTask)
	s.respond(w, r, "draft loading", st, err)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.Get(taskID(r))
	s.respond(w, r, "", st, err)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Close(taskID(r))
	w.WriteHeader(http.StatusNoContent)
}

// handleSaveDraft saves the draft. The body may carry replacement blocks or
// replacement text; with neither the current draft is saved.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks []document.Block `json:"blocks"`
		Text   *string          `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	blocks := req.Blocks
	if blocks == nil && req.Text != nil {
		blocks = parser.ParseMarkdown([]byte(*req.Text))
	}
	st, err := s.sessions.Save(r.Context(), taskID(r), blocks)
	if errors.Is(err, session.ErrEmptyDraft) {
		// Nothing to store is a warning, not a failure.
		writeJSON(w, http.StatusOK, map[string]any{"warning": "No content to save", "state": st})
		return
	}
	s.respond(w, r, "draft saving", st, err)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	st, err := s.sessions.Import(r.Context(), taskID(r), filename, bytes.NewReader(data))
	if err != nil && statusFor(err) == http.StatusInternalServerError && !errors.Is(err, session.ErrSessionReset) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.respond(w, r, "file import", st, err)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := s.sessions.Render(taskID(r), f, &buf); err != nil {
		s.fail(w, r, "", err, nil)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	if f == render.FormatDOCX || r.URL.Query().Get("download") == "true" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitizeFilename(taskID(r))+f.Extension()))
	}
	w.Write(buf.Bytes())
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	res, err := s.sessions.Locate(taskID(r), q)
	if err != nil {
		s.fail(w, r, "", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := s.sessions.Reset(taskID(r), req.Reason)
	s.respond(w, r, "", st, err)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
