package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/sessionservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *sessionservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *sessionservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List sessions, most recently updated first
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSessions(r.Context())
	if err != nil {
		writeError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: items, Total: len(items)})
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Create an empty session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	true	"Session to create"
//	@Success		201		{object}	models.Session
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.CreateSession(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create session", err)
		return
	}
	setETag(w, sess)
	writeJSON(w, http.StatusCreated, sess)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get a session with its clips and annotations
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	models.Session
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	setETag(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

// SaveSession handles PUT /api/sessions/{id}.
//
//	@Summary		Replace session content with optimistic concurrency
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Session ID"
//	@Param			If-Match	header		string			false	"Revision checksum for optimistic concurrency"
//	@Param			body		body		models.Snapshot	true	"Clips and annotations"
//	@Success		200			{object}	models.Session
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [put]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	var snap models.Snapshot
	if !decodeJSON(w, r, &snap) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	sess, err := h.svc.SaveSession(r.Context(), chi.URLParam(r, "id"), snap, ifMatch)
	if err != nil {
		writeError(w, "save session", err)
		return
	}
	setETag(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Delete a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetVideo handles PUT /api/sessions/{id}/video.
//
//	@Summary		Attach video metadata and re-clamp content to its duration
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		SetVideoRequest	true	"Video file name and duration"
//	@Success		200		{object}	models.Session
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/video [put]
func (h *Handler) SetVideo(w http.ResponseWriter, r *http.Request) {
	var req SetVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.svc.SetVideo(r.Context(), chi.URLParam(r, "id"), req.FileName, req.Duration)
	if err != nil {
		writeError(w, "set video", err)
		return
	}
	setETag(w, sess)
	writeJSON(w, http.StatusOK, sess)
}

// Frame handles GET /api/sessions/{id}/frame?t=.
//
//	@Summary		Render descriptors of a session at a time
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Param			t	query		number	true	"Media time in seconds"
//	@Success		200	{object}	FrameResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/frame [get]
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 't' must be a finite number"))
		return
	}
	frame, err := h.svc.Frame(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		writeError(w, "frame", err)
		return
	}
	writeJSON(w, http.StatusOK, FrameResponse{Time: t, Descriptors: frame})
}

// MarkClip handles POST /api/sessions/{id}/clips.
//
//	@Summary		Mark a clip around a media time
//	@Tags			clips
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		MarkClipRequest	true	"Mark time and clip type"
//	@Success		201		{object}	models.Clip
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/clips [post]
func (h *Handler) MarkClip(w http.ResponseWriter, r *http.Request) {
	var req MarkClipRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.MarkClip(r.Context(), chi.URLParam(r, "id"), req.At, req.Type)
	if err != nil {
		writeError(w, "mark clip", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateClip handles PATCH /api/sessions/{id}/clips/{clipID}.
//
//	@Summary		Update a clip; times are clamped to the video
//	@Tags			clips
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			clipID	path		string				true	"Clip ID"
//	@Param			body	body		ClipPatchRequest	true	"Fields to change"
//	@Success		200		{object}	models.Clip
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/clips/{clipID} [patch]
func (h *Handler) UpdateClip(w http.ResponseWriter, r *http.Request) {
	var req ClipPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateClip(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "clipID"), req.patch())
	if err != nil {
		writeError(w, "update clip", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteClip handles DELETE /api/sessions/{id}/clips/{clipID}.
//
//	@Summary		Delete a clip and detach its annotations
//	@Tags			clips
//	@Param			id		path	string	true	"Session ID"
//	@Param			clipID	path	string	true	"Clip ID"
//	@Success		204		"Clip deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/clips/{clipID} [delete]
func (h *Handler) DeleteClip(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteClip(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "clipID")); err != nil {
		writeError(w, "delete clip", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAnnotation handles POST /api/sessions/{id}/annotations.
//
//	@Summary		Add an annotation
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			body	body		models.Annotation	true	"Annotation"
//	@Success		201		{object}	models.Annotation
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/annotations [post]
func (h *Handler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var a models.Annotation
	if !decodeJSON(w, r, &a) {
		return
	}
	created, err := h.svc.AddAnnotation(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeError(w, "add annotation", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateAnnotation handles PATCH /api/sessions/{id}/annotations/{annotationID}.
//
//	@Summary		Update an annotation; times are clamped to the video
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string					true	"Session ID"
//	@Param			annotationID	path		string					true	"Annotation ID"
//	@Param			body			body		AnnotationPatchRequest	true	"Fields to change"
//	@Success		200				{object}	models.Annotation
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/annotations/{annotationID} [patch]
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req AnnotationPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.UpdateAnnotation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "annotationID"), req.patch())
	if err != nil {
		writeError(w, "update annotation", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAnnotation handles DELETE /api/sessions/{id}/annotations/{annotationID}.
//
//	@Summary		Delete an annotation
//	@Tags			annotations
//	@Param			id				path	string	true	"Session ID"
//	@Param			annotationID	path	string	true	"Annotation ID"
//	@Success		204				"Annotation deleted"
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/annotations/{annotationID} [delete]
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAnnotation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "annotationID")); err != nil {
		writeError(w, "delete annotation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordMotion handles POST /api/sessions/{id}/annotations/{annotationID}/motion.
//
//	@Summary		Record keyframes from poses spread evenly over a time range
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string				true	"Session ID"
//	@Param			annotationID	path		string				true	"Annotation ID"
//	@Param			body			body		RecordMotionRequest	true	"Time range and poses"
//	@Success		200				{object}	models.Annotation
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/annotations/{annotationID}/motion [post]
func (h *Handler) RecordMotion(w http.ResponseWriter, r *http.Request) {
	var req RecordMotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.End < req.Start {
		writeJSON(w, http.StatusBadRequest, errorBody("end must not be before start"))
		return
	}
	a, err := h.svc.RecordMotion(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "annotationID"), req.Start, req.End, req.poses())
	if err != nil {
		writeError(w, "record motion", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
