package builder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/form"
	"resume-builder/internal/resumes"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/util"
	"resume-builder/internal/validation"
)

const maxPhotoUpload = validation.MaxPhotoBytes + 1<<20

// Handler exposes workspaces over HTTP.
type Handler struct {
	Registry *Registry
	// Heartbeat is the keep-alive interval of the event stream.
	Heartbeat time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(reg *Registry) *Handler {
	return &Handler{Registry: reg, Heartbeat: 15 * time.Second}
}

// RegisterRoutes attaches session, form, preview, record, theme and event routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.session)
	rg.GET("/form", h.getForm)
	rg.PUT("/form/fields/:field", h.setField)
	rg.POST("/form/experiences", h.addExperience)
	rg.PUT("/form/experiences/:handle", h.setExperience)
	rg.DELETE("/form/experiences/:handle", h.removeExperience)
	rg.PUT("/form/photo", h.setPhoto)
	rg.DELETE("/form/photo", h.clearPhoto)
	rg.POST("/form/reset", h.reset)
	rg.POST("/form/submit", h.submit(resumes.StatusSubmitted))
	rg.POST("/form/draft", h.submit(resumes.StatusDraft))

	rg.GET("/preview", h.preview)

	rg.GET("/resumes", h.list)
	rg.POST("/resumes/search", h.search)
	rg.GET("/resumes/:id/export", h.export)
	rg.POST("/resumes/:id/apply", h.apply)
	rg.DELETE("/resumes/:id", h.remove)

	rg.GET("/theme", h.getTheme)
	rg.PUT("/theme", h.setTheme)

	rg.GET("/events", h.events)
}

func (h *Handler) workspace(c *gin.Context) (*Workspace, bool) {
	ns := middleware.NamespaceFromContext(c)
	if ns == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return nil, false
	}
	w, err := h.Registry.Get(c.Request.Context(), ns)
	if errors.Is(err, ErrRegistryFull) {
		c.Header("Retry-After", "30")
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "too many active sessions, retry shortly", nil)
		return nil, false
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open workspace", nil)
		return nil, false
	}
	return w, true
}

func fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, form.ErrUnknownField):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, form.ErrUnknownHandle):
		respond.Error(c, http.StatusNotFound, "not_found", "experience not found", nil)
	case errors.Is(err, resumes.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, resumes.ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrSubmitPending):
		respond.Error(c, http.StatusConflict, "submit_pending", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "canceled", "request canceled before completion", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to "+action, nil)
	}
}

func (h *Handler) session(c *gin.Context) {
	ns := middleware.NamespaceFromContext(c)
	if ns == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	resp := gin.H{"namespace": ns, "guest": middleware.IsGuestFromContext(c)}
	if email := middleware.UserEmailFromContext(c); email != "" {
		resp["email"] = email
	}
	respond.OK(c, resp)
}

func (h *Handler) getForm(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	p, err := w.Preview(c.Request.Context())
	if err != nil {
		fail(c, err, "render preview")
		return
	}
	respond.OK(c, gin.H{"form": w.Form(), "preview": p})
}

type valueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) setField(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	field := c.Param("field")
	res, p, err := w.SetField(c.Request.Context(), field, req.Value)
	if err != nil {
		fail(c, err, "update field")
		return
	}
	respond.OK(c, gin.H{"field": field, "valid": res.Valid, "message": res.Message, "preview": p})
}

func (h *Handler) addExperience(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	handle, state, err := w.AddExperience(c.Request.Context())
	if err != nil {
		fail(c, err, "add experience")
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"handle": handle, "form": state})
}

type experienceRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *Handler) setExperience(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Field) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "field is required", nil)
		return
	}
	res, err := w.SetExperienceField(c.Request.Context(), c.Param("handle"), req.Field, req.Value)
	if err != nil {
		fail(c, err, "update experience")
		return
	}
	respond.OK(c, gin.H{"handle": c.Param("handle"), "field": req.Field, "valid": res.Valid, "message": res.Message})
}

func (h *Handler) removeExperience(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	removed, state, err := w.RemoveExperience(c.Request.Context(), c.Param("handle"))
	if err != nil {
		fail(c, err, "remove experience")
		return
	}
	respond.OK(c, gin.H{"removed": removed, "form": state})
}

func (h *Handler) setPhoto(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoUpload)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "photo is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxPhotoBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read photo", nil)
		return
	}

	res, err := w.SetPhoto(c.Request.Context(), &validation.Photo{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Data:        data,
	})
	if err != nil {
		fail(c, err, "update photo")
		return
	}
	if !res.Valid {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", res.Message, gin.H{"field": form.PhotoField})
		return
	}
	respond.OK(c, res)
}

func (h *Handler) clearPhoto(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := w.ClearPhoto(c.Request.Context()); err != nil {
		fail(c, err, "clear photo")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) reset(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	state, err := w.Reset(c.Request.Context())
	if err != nil {
		fail(c, err, "reset form")
		return
	}
	respond.OK(c, state)
}

func (h *Handler) submit(status resumes.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, ok := h.workspace(c)
		if !ok {
			return
		}
		out, err := w.Submit(c.Request.Context(), status)
		if err != nil {
			fail(c, err, "save resume")
			return
		}
		c.Set(middleware.StatusTransitionKey, strings.Join(out.Transitions, ","))
		if !out.Saved {
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "form has invalid fields", gin.H{
				"focusField": out.FocusField,
				"errors":     out.Errors,
			})
			return
		}
		c.Set(middleware.RecordIDKey, out.Record.ID)
		respond.JSON(c, http.StatusCreated, out)
	}
}

func (h *Handler) preview(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	p, err := w.Preview(c.Request.Context())
	if err != nil {
		fail(c, err, "render preview")
		return
	}
	respond.OK(c, p)
}

func (h *Handler) list(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	list, err := w.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err, "list resumes")
		return
	}
	respond.OK(c, list)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) search(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	w.Search(req.Query)
	respond.Accepted(c, gin.H{"scheduled": true, "query": req.Query})
}

func (h *Handler) export(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, err := w.Record(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "export resume")
		return
	}
	c.Set(middleware.RecordIDKey, rec.ID)
	c.Header("Content-Disposition", `attachment; filename="`+util.ExportFileName(rec.Name, rec.ID, ".json")+`"`)
	respond.OK(c, rec)
}

func (h *Handler) apply(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	id := c.Param("id")
	state, err := w.ApplyRecord(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "apply resume")
		return
	}
	c.Set(middleware.RecordIDKey, id)
	respond.OK(c, state)
}

func (h *Handler) remove(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	id := c.Param("id")
	removed, err := w.DeleteRecord(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "delete resume")
		return
	}
	c.Set(middleware.RecordIDKey, id)
	respond.OK(c, gin.H{"id": id, "removed": removed})
}

func (h *Handler) getTheme(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	theme, err := w.Theme(c.Request.Context())
	if err != nil {
		fail(c, err, "load theme")
		return
	}
	respond.OK(c, gin.H{"theme": theme})
}

type themeRequest struct {
	Theme  string `json:"theme"`
	Toggle bool   `json:"toggle"`
}

func (h *Handler) setTheme(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := c.Request.Context()
	if req.Toggle {
		theme, err := w.ToggleTheme(ctx)
		if err != nil {
			fail(c, err, "toggle theme")
			return
		}
		respond.OK(c, gin.H{"theme": theme})
		return
	}

	theme, err := resumes.ParseTheme(req.Theme)
	if err != nil {
		fail(c, err, "update theme")
		return
	}
	if err := w.SetTheme(ctx, theme); err != nil {
		fail(c, err, "update theme")
		return
	}
	respond.OK(c, gin.H{"theme": theme})
}

func (h *Handler) events(c *gin.Context) {
	w, ok := h.workspace(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sse, err := NewSSEWriter(c.Writer)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	events, unsubscribe := w.Subscribe()
	defer unsubscribe()

	p, err := w.Preview(ctx)
	if err == nil {
		err = sse.WriteEvent(EventPreview, p)
	}
	if err != nil {
		return
	}

	interval := h.Heartbeat
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := sse.WriteEvent(ev.Type, ev.Data); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
