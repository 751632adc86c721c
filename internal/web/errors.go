package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and the request id, then
// returned to the client as the user message from core.MapError: a JSON
// payload for API clients, an HTML fragment for HTMX, plain text otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/addr2line-web/addr2line/internal/core"
	"github.com/addr2line-web/addr2line/internal/remote"
	"github.com/addr2line-web/addr2line/internal/web/templates"
)

var (
	errNoFile    = errors.New("no file provided")
	errEmptyFile = errors.New("empty file")
	errBadBody   = errors.New("invalid request body")
)

// ErrorResponse is the JSON body of every API error. The remote client in
// internal/remote decodes the same shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// IDs lists artifacts a partly failed upload did store.
	IDs []string `json:"ids,omitempty"`
}

// respondError logs err and writes the user-facing message with statusCode.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	respondErrorIDs(w, r, err, statusCode, nil)
}

// respondErrorIDs is respondError for commands that failed after creating
// the artifacts in ids.
func respondErrorIDs(w http.ResponseWriter, r *http.Request, err error, statusCode int, ids []string) {
	userMsg := core.MapError(err)

	logger := requestLogger(r).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"created", len(ids),
	)
	if statusCode >= 500 {
		logger.Error("request error")
	} else {
		logger.Warn("request error")
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, err, userMsg, statusCode, ids)
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// respondErrorJSON writes the error payload. Error carries the technical
// message for errors the user caused, so API clients can show what exactly
// was wrong with their pattern or file.
func respondErrorJSON(w http.ResponseWriter, err error, msg core.UserMessage, statusCode int, ids []string) {
	detail := msg.Message
	if core.IsUserFacing(err) && statusCode < 500 {
		detail = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		IDs:     ids,
	})
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		requestLogger(r).Error("render error partial", "error", err)
	}
}

// statusFor picks the HTTP status for an error returned by the core.
func statusFor(err error) int {
	var (
		maxBytes   *http.MaxBytesError
		openErr    *core.OpenError
		patternErr *core.PatternError
		loopErr    *core.NonTerminatingRuleError
		remoteErr  *remote.RemoteError
	)

	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile), errors.Is(err, errEmptyFile), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrIndexOutOfRange), errors.Is(err, core.ErrEmptyTag):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoActiveArtifact), errors.Is(err, core.ErrStaleConversion):
		return http.StatusConflict
	case errors.As(err, &openErr), errors.As(err, &patternErr), errors.As(err, &loopErr),
		errors.Is(err, core.ErrCleanupTimeout):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
