package web

import (
	"net/http"

	"github.com/addr2line-web/addr2line/internal/core"
)

type inputRequest struct {
	Text string `json:"text"`
}

// handleSetInput replaces the log text and reconverts.
func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeJSON(w, r, s.cfg.Upload.MaxInputSize+maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.SetInput{Text: req.Text}, http.StatusOK)
}

// handleClearInput empties both the input and the output.
func (s *Server) handleClearInput(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, core.ClearInput{}, http.StatusOK)
}

// handleLoadInputFile replaces the input with the contents of an uploaded
// text file.
func (s *Server) handleLoadInputFile(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.cfg.Upload.MaxInputSize); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := formFiles(r, "file")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	data, err := readPart(files[0])
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	requestLogger(r).Info("input loaded from file", "file", files[0].Filename, "bytes", len(data))
	s.dispatch(w, r, core.SetInput{Text: string(data)}, http.StatusOK)
}

// handleApplyCleanupToInput rewrites the input with the current pattern.
func (s *Server) handleApplyCleanupToInput(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, core.ApplyCleanupToInput{}, http.StatusOK)
}

type patternRequest struct {
	Pattern string `json:"pattern"`
}

func (s *Server) handleSetCleanupPattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.SetCleanupPattern{Pattern: req.Pattern}, http.StatusOK)
}

// handleSessionConvert converts the session input against the active
// artifact. Conversion-scoped failures still render an output and are
// reported alongside it; only a superseded or rejected conversion fails
// the request.
func (s *Server) handleSessionConvert(w http.ResponseWriter, r *http.Request) {
	conv, err := s.session.Convert(r.Context())
	if conv == nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if isHTMX(r) {
		renderOutput(w, r, *conv, http.StatusOK)
		return
	}
	writeJSON(w, convertResponse{Output: *conv, Error: conversionError(err)})
}

func (s *Server) handleSessionOutput(w http.ResponseWriter, r *http.Request) {
	conv := s.session.Output()
	if isHTMX(r) {
		renderOutput(w, r, conv, http.StatusOK)
		return
	}
	writeJSON(w, convertResponse{Output: conv})
}
