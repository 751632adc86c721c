package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/addr2line-web/addr2line/internal/core"
	"github.com/addr2line-web/addr2line/internal/web/templates"
)

// maxJSONBody bounds request bodies that carry only small JSON objects.
const maxJSONBody = 64 << 10

// multipartMemory is how much of a multipart form is held in memory; the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// commandResponse is returned by every endpoint that mutates the session.
// When the command changed what the output depends on, the session is
// reconverted and Output holds the new rendering.
type commandResponse struct {
	Effect          core.Effect      `json:"effect"`
	State           core.State       `json:"state"`
	Output          *core.Conversion `json:"output,omitempty"`
	ConversionError *ErrorResponse   `json:"conversionError,omitempty"`
}

// convertResponse pairs a rendered conversion with the error it was
// rendered for, if any.
type convertResponse struct {
	Output core.Conversion `json:"output"`
	Error  *ErrorResponse  `json:"error,omitempty"`
}

// dispatch runs cmd against the session and writes a commandResponse.
//
// A command can fail after changing the active artifact, as when an upload
// stores some files before failing; the output is still reconverted and the
// created ids are reported with the error.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, cmd core.Command, status int) {
	effect, err := s.session.Dispatch(r.Context(), cmd)
	if err != nil {
		if effect.Reconvert {
			s.reconvert(r)
		}
		respondErrorIDs(w, r, err, statusFor(err), effect.IDs)
		return
	}

	resp := commandResponse{Effect: effect}
	if effect.Reconvert {
		conv, convErr := s.reconvert(r)
		resp.Output = &conv
		resp.ConversionError = conversionError(convErr)
	}
	resp.State = s.session.State()

	if isHTMX(r) && resp.Output != nil {
		renderOutput(w, r, *resp.Output, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, resp)
}

// reconvert converts the session and returns what is rendered afterwards.
// A stale or rejected conversion leaves the previous output in place.
func (s *Server) reconvert(r *http.Request) (core.Conversion, error) {
	conv, err := s.session.Convert(r.Context())
	if conv == nil {
		return s.session.Output(), err
	}
	return *conv, err
}

// conversionError describes a conversion-scoped failure without failing
// the request that triggered it.
func conversionError(err error) *ErrorResponse {
	if err == nil || errors.Is(err, core.ErrStaleConversion) {
		return nil
	}
	msg := core.MapError(err)
	return &ErrorResponse{Error: err.Error(), Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

func renderOutput(w http.ResponseWriter, r *http.Request, conv core.Conversion, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Output(conv).Render(r.Context(), w); err != nil {
		requestLogger(r).Error("render output", "error", err)
	}
}

// decodeJSON reads at most limit bytes of JSON into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// readPart reads one uploaded file, rejecting empty ones.
func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", fh.Filename, errEmptyFile)
	}
	return data, nil
}

// parseMultipart limits the body to limit bytes and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// formFiles returns the uploaded files under field, or errNoFile.
func formFiles(r *http.Request, field string) ([]*multipart.FileHeader, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, errNoFile
	}
	return r.MultipartForm.File[field], nil
}
