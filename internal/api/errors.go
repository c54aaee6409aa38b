package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/draftlens/internal/blobstore"
	"github.com/dgallion1/draftlens/internal/components"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/parser"
	"github.com/dgallion1/draftlens/internal/pipeline"
	"github.com/dgallion1/draftlens/internal/render"
	"github.com/dgallion1/draftlens/internal/session"
)

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	var (
		malformed *llm.MalformedError
		timeout   *pipeline.TimeoutError
	)
	switch {
	case errors.Is(err, pipeline.ErrInFlight),
		errors.Is(err, pipeline.ErrStaleContent),
		errors.Is(err, session.ErrNoSelection),
		errors.Is(err, session.ErrNoPreview),
		errors.Is(err, session.ErrNoRecommendation):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, components.ErrUnknownComponent),
		errors.Is(err, components.ErrUnknownIntent),
		errors.Is(err, blobstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownAction),
		errors.Is(err, session.ErrEmptyDraft),
		errors.Is(err, pipeline.ErrEmptyContent),
		errors.Is(err, blobstore.ErrInvalidKey),
		errors.Is(err, parser.ErrUnsupported),
		errors.Is(err, render.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.As(err, &malformed),
		errors.Is(err, session.ErrNoVariation),
		errors.Is(err, session.ErrEmptyAnswer):
		return http.StatusBadGateway
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrSessionReset):
		return http.StatusInternalServerError
	}
	switch pipeline.Classify(err) {
	case pipeline.FailureTimeout:
		return http.StatusGatewayTimeout
	case pipeline.FailureConnection:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorMessage is the text returned to the client. Service failures get
// the classified message for subject; everything else reports err as is.
func errorMessage(subject string, err error, code int) string {
	if subject != "" && (code == http.StatusGatewayTimeout || code == http.StatusBadGateway || code == http.StatusInternalServerError) &&
		!errors.Is(err, session.ErrSessionReset) {
		return pipeline.Message(subject, err)
	}
	return err.Error()
}

// fail writes err with the session state when there is one, so callers see
// a reset or partial result.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, subject string, err error, st *session.State) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "status", code, "error", err)
	}
	body := map[string]any{"error": errorMessage(subject, err, code)}
	if st != nil && st.TaskID != "" {
		body["state"] = st
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
