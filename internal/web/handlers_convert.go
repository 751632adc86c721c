package web

import (
	"errors"
	"net/http"

	"github.com/addr2line-web/addr2line/internal/core"
)

// statelessConvertResponse is the wire format internal/remote consumes.
type statelessConvertResponse struct {
	ConvertedText string `json:"converted_text"`
	Diagnostic    string `json:"diagnostic,omitempty"`
	Addresses     int    `json:"addresses"`
	Unresolved    int    `json:"unresolved"`
}

// handleConvert resolves the multipart "text" field against the "elf_file"
// binary without touching the session. An optional "pattern" field is
// applied as cleanup. A failing cleanup still answers 200 with the
// uncleaned text and a diagnostic; an unreadable binary is an error.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.cfg.Upload.MaxBinarySize+s.cfg.Upload.MaxInputSize); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := formFiles(r, "elf_file")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	binary, err := readPart(files[0])
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	text := r.FormValue("text")
	conv, err := s.converter.Run(r.Context(), text, binary, r.FormValue("pattern"))
	if err != nil && (conv == nil || !isCleanupError(err)) {
		respondError(w, r, err, statusFor(err))
		return
	}

	requestLogger(r).Info("stateless conversion",
		"input_bytes", len(text),
		"binary_bytes", len(binary),
		"addresses", conv.Addresses,
		"unresolved", conv.Unresolved,
	)
	writeJSON(w, statelessConvertResponse{
		ConvertedText: conv.Output,
		Diagnostic:    conv.Diagnostic,
		Addresses:     conv.Addresses,
		Unresolved:    conv.Unresolved,
	})
}

type cleanupRequest struct {
	Text    string `json:"text"`
	Pattern string `json:"pattern"`
}

// handleCleanupPreview applies a pattern to arbitrary text, for trying a
// pattern before setting it on the session.
func (s *Server) handleCleanupPreview(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(w, r, s.cfg.Upload.MaxInputSize+maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	out, err := s.converter.Cleanup(req.Text, req.Pattern)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, map[string]string{"text": out})
}

func isCleanupError(err error) bool {
	var (
		patternErr *core.PatternError
		loopErr    *core.NonTerminatingRuleError
	)
	return errors.As(err, &patternErr) || errors.As(err, &loopErr) || errors.Is(err, core.ErrCleanupTimeout)
}
