package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchsync/internal/service/room"
)

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type createRoomRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRoomRequest
	if err := c.readJSON(w, r, &req); err != nil {
		c.logger.DebugContext(ctx, "failed to read json", "error", err)
		c.writeJSON(w, http.StatusBadRequest, envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.DebugContext(ctx, "validation failed", "errors", validationErrors)
		c.writeJSON(w, http.StatusBadRequest, envelope{"errors": validationErrors})
		return
	}

	info, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
		VideoURL: req.URL,
	})
	if err != nil {
		if errors.Is(err, room.ErrInvalidVideoReference) {
			c.logger.DebugContext(ctx, "invalid video reference", "error", err)
			c.writeJSON(w, http.StatusBadRequest, envelope{"error": err.Error()})
			return
		}
		c.logger.ErrorContext(ctx, "failed to create room", "error", err)
		c.writeJSON(w, http.StatusInternalServerError, envelope{"error": "internal server error"})
		return
	}

	c.writeJSON(w, http.StatusCreated, envelope{"data": info})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomId := chi.URLParam(r, "room-id")

	info, err := c.roomService.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.writeJSON(w, http.StatusNotFound, envelope{"error": err.Error()})
			return
		}
		c.logger.ErrorContext(ctx, "failed to get room", "error", err, "room_id", roomId)
		c.writeJSON(w, http.StatusInternalServerError, envelope{"error": "internal server error"})
		return
	}

	c.writeJSON(w, http.StatusOK, envelope{"data": info})
}
