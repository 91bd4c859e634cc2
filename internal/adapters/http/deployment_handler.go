package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"blogsmith/internal/core/deploy"
	"blogsmith/internal/domain"
	"blogsmith/internal/logger"
)

// ActivityFeed is the per-owner recent-activity surface behind the activity
// endpoints. Nil means no feed is configured.
type ActivityFeed interface {
	Recent(ctx context.Context, ownerID string, limit int64) ([]json.RawMessage, error)
	Clear(ctx context.Context, ownerID string) error
}

type DeploymentHandler struct {
	svc  domain.DeploymentService
	feed ActivityFeed
	log  logger.Logger
}

func NewDeploymentHandler(svc domain.DeploymentService, feed ActivityFeed, log logger.Logger) *DeploymentHandler {
	return &DeploymentHandler{
		svc:  svc,
		feed: feed,
		log:  log,
	}
}

func (h *DeploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.DeploymentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, &Response{Message: err.Error()})
		return
	}

	if errs := ValidateStruct(req); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, &Response{
			Message: "validation failed",
			Errors:  errs,
		})
		return
	}

	d, err := h.svc.Create(r.Context(), OwnerID(r.Context()), req)
	if err != nil {
		if !domain.ValidSiteName(req.SiteName) {
			writeJSON(w, http.StatusUnprocessableEntity, &Response{Message: err.Error()})
			return
		}
		h.log.Error("failed to create deployment", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to create deployment"})
		return
	}

	writeJSON(w, http.StatusCreated, &Response{Data: d})
}

func (h *DeploymentHandler) Index(w http.ResponseWriter, r *http.Request) {
	deployments, err := h.svc.List(r.Context(), OwnerID(r.Context()))
	if err != nil {
		h.log.Error("failed to list deployments", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to list deployments"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Data: deployments})
}

func (h *DeploymentHandler) Show(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetByID(r.Context(), OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to get deployment")
		return
	}

	writeJSON(w, http.StatusOK, &Response{Data: d})
}

func (h *DeploymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), OwnerID(r.Context()), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "failed to delete deployment")
		return
	}

	writeJSON(w, http.StatusOK, &Response{Message: "deployment deleted"})
}

func (h *DeploymentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Publish(r.Context(), OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, deploy.ErrNotReady) {
			writeJSON(w, http.StatusConflict, &Response{Message: "deployment is not ready for hosting"})
			return
		}
		h.writeServiceError(w, err, "failed to publish deployment")
		return
	}

	writeJSON(w, http.StatusAccepted, &Response{Data: d})
}

func (h *DeploymentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Retry(r.Context(), OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, deploy.ErrNotRetryable) {
			writeJSON(w, http.StatusConflict, &Response{Message: "deployment is not in a retryable state"})
			return
		}
		h.writeServiceError(w, err, "failed to retry deployment")
		return
	}

	writeJSON(w, http.StatusAccepted, &Response{Data: d})
}

func (h *DeploymentHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSON(w, http.StatusOK, &Response{Data: []any{}})
		return
	}

	entries, err := h.feed.Recent(r.Context(), OwnerID(r.Context()), 50)
	if err != nil {
		h.log.Error("failed to read activity feed", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to read activity"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Data: entries})
}

// ClearActivity drops the owner's activity stream.
func (h *DeploymentHandler) ClearActivity(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeJSON(w, http.StatusOK, &Response{Message: "activity cleared"})
		return
	}

	if err := h.feed.Clear(r.Context(), OwnerID(r.Context())); err != nil {
		h.log.Error("failed to clear activity feed", "error", err)
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "failed to clear activity"})
		return
	}

	writeJSON(w, http.StatusOK, &Response{Message: "activity cleared"})
}

// Events streams the owner's status changes as server-sent events until the
// client disconnects.
func (h *DeploymentHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, &Response{Message: "streaming unsupported"})
		return
	}

	events, cancel := h.svc.Watch(OwnerID(r.Context()))
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *DeploymentHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, domain.ErrDeploymentNotFound) {
		writeJSON(w, http.StatusNotFound, &Response{Message: "deployment not found"})
		return
	}

	h.log.Error(fallback, "error", err)
	writeJSON(w, http.StatusInternalServerError, &Response{Message: fallback})
}
