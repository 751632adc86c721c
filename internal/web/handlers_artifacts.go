package web

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/addr2line-web/addr2line/internal/core"
)

// handleListArtifacts returns the registry and editor state.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.State())
}

// handleAddArtifacts adds every "file" part of a multipart upload. Optional
// "path" values pair with the files by position and record where each
// binary came from.
func (s *Server) handleAddArtifacts(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.cfg.Upload.MaxBinarySize); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := formFiles(r, "file")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	paths := r.MultipartForm.Value["path"]

	uploads := make([]core.Upload, 0, len(files))
	for i, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		up := core.Upload{Name: fh.Filename, Content: core.BytesSource(data)}
		if i < len(paths) {
			up.Path = paths[i]
		}
		uploads = append(uploads, up)
	}

	requestLogger(r).Info("artifacts uploaded", "count", len(uploads))
	s.dispatch(w, r, core.AddArtifacts{Uploads: uploads}, http.StatusCreated)
}

func (s *Server) handleRemoveArtifact(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, core.RemoveArtifact{ID: chi.URLParam(r, "id")}, http.StatusOK)
}

type renameRequest struct {
	DisplayName string `json:"displayName"`
}

// handleRenameArtifact sets the display name. A blank name restores the
// file name.
func (s *Server) handleRenameArtifact(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.RenameArtifact{ID: chi.URLParam(r, "id"), DisplayName: req.DisplayName}, http.StatusOK)
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.AddTag{ID: chi.URLParam(r, "id"), Tag: req.Tag}, http.StatusOK)
}

func (s *Server) handleRemoveTag(w http.ResponseWriter, r *http.Request) {
	tag, err := pathParam(r, "tag")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.RemoveTag{ID: chi.URLParam(r, "id"), Tag: tag}, http.StatusOK)
}

func (s *Server) handleTagSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.session.TagSuggestions(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, map[string][]string{"suggestions": suggestions})
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func (s *Server) handleReorderArtifact(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.From == nil || req.To == nil {
		err := fmt.Errorf("%w: from and to are required", errBadBody)
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.ReorderArtifact{From: *req.From, To: *req.To}, http.StatusOK)
}

type selectRequest struct {
	Index *int `json:"index"`
}

// handleSelectArtifact makes the artifact at index active and reconverts.
func (s *Server) handleSelectArtifact(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if req.Index == nil {
		err := fmt.Errorf("%w: index is required", errBadBody)
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.SelectArtifact{Index: *req.Index}, http.StatusOK)
}

// handleToggleTagFilter adds the tag to the visibility filter, or removes
// it if already selected.
func (s *Server) handleToggleTagFilter(w http.ResponseWriter, r *http.Request) {
	tag, err := pathParam(r, "tag")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	s.dispatch(w, r, core.ToggleTagFilter{Tag: tag}, http.StatusOK)
}

// pathParam returns a decoded URL parameter; tags may contain any
// character.
func pathParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", errBadBody, name, err)
	}
	return v, nil
}
