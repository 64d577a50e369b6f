package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room_id", roomId))

	if videoId := r.URL.Query().Get("v"); videoId != "" {
		if err := c.roomService.EnsureAdHocRoom(ctx, &room.EnsureAdHocRoomParams{
			RoomId:  roomId,
			VideoId: videoId,
		}); err != nil {
			switch {
			case errors.Is(err, room.ErrAdHocRoomsDisabled):
				c.logger.DebugContext(ctx, "ignoring video hint", "video_id", videoId)
			case errors.Is(err, room.ErrInvalidVideoReference):
				c.writeJSON(w, http.StatusBadRequest, envelope{"error": err.Error()})
				return
			default:
				c.logger.ErrorContext(ctx, "failed to ensure ad-hoc room", "error", err)
				c.writeJSON(w, http.StatusInternalServerError, envelope{"error": "internal server error"})
				return
			}
		}
	}

	// reject before upgrading so clients can tell a missing room from a lost connection
	if _, err := c.roomService.GetRoom(ctx, roomId); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.logger.DebugContext(ctx, "room not found")
			c.writeJSON(w, http.StatusNotFound, envelope{"error": err.Error()})
			return
		}
		c.logger.ErrorContext(ctx, "failed to get room", "error", err)
		c.writeJSON(w, http.StatusInternalServerError, envelope{"error": "internal server error"})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	cl := newClient(conn, roomId, c.cfg)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", cl.Id()))
	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, connIdCtxKey, cl.Id())

	if _, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		RoomId: roomId,
		Conn:   cl,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to join room", "error", err)
		code, message := websocket.CloseInternalServerErr, "internal server error"
		if errors.Is(err, room.ErrRoomNotFound) {
			code, message = CloseRoomNotFound, err.Error()
		}
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, message), time.Now().Add(c.cfg.WriteWait))
		conn.Close()
		return
	}
	defer c.disconnect(ctx, cl)

	go cl.writePump(ctx, c.logger, c.cfg)
	c.readPump(ctx, cl)
}

// CloseRoomNotFound is sent when a room disappears between lookup and join.
const CloseRoomNotFound = 4004

func (c controller) disconnect(ctx context.Context, cl *client) {
	cl.Close()

	if _, err := c.roomService.LeaveRoom(context.WithoutCancel(ctx), &room.LeaveRoomParams{
		RoomId: cl.roomId,
		ConnId: cl.Id(),
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}
}

func (c controller) readPump(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(c.cfg.ReadLimit)
	cl.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.InfoContext(ctx, "websocket closed unexpectedly", "error", err)
			} else {
				c.logger.DebugContext(ctx, "websocket closed", "error", err)
			}
			return
		}

		if !cl.limiter.Allow() {
			c.logger.WarnContext(ctx, "rate limit exceeded, message dropped")
			c.writeError(ctx, cl, protocol.ErrCodeRateLimited, "too many messages")
			continue
		}

		if err := c.wsmux.Serve(ctx, cl, data); err != nil {
			c.handleWSError(ctx, cl, err)
		}
	}
}

func (c controller) handleWSError(ctx context.Context, cl *client, err error) {
	switch {
	case errors.Is(err, wsrouter.ErrUnknownType):
		c.logger.DebugContext(ctx, "unknown message type", "error", err)
		c.writeError(ctx, cl, protocol.ErrCodeUnknownType, err.Error())
	case errors.Is(err, wsrouter.ErrInvalidMessage),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, ErrValidationError),
		errors.Is(err, room.ErrInvalidPlayerState):
		c.logger.DebugContext(ctx, "bad request", "error", err)
		c.writeError(ctx, cl, protocol.ErrCodeBadRequest, err.Error())
	case errors.Is(err, room.ErrRoomNotFound):
		c.logger.InfoContext(ctx, "room is gone", "error", err)
		c.writeError(ctx, cl, protocol.ErrCodeRoomNotFound, err.Error())
	default:
		c.logger.ErrorContext(ctx, "failed to handle message", "error", err)
	}
}

func (c controller) writeError(ctx context.Context, cl *client, code, message string) {
	data, err := protocol.Encode(protocol.TypeError, protocol.Error{Code: code, Message: message})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode error", "error", err)
		return
	}

	if !cl.Send(data) {
		c.logger.WarnContext(ctx, "dropping slow connection")
		cl.Close()
	}
}

type PlayerStateInput struct {
	Status   *protocol.Status `json:"status" validate:"required"`
	Position *float64         `json:"position" validate:"required,gte=0"`
	// UpdatedAt is assigned by the relay, a client supplied value is ignored.
	UpdatedAt int64 `json:"updatedAt"`
}

func (c controller) handlePlayerState(ctx context.Context, cl *client, input PlayerStateInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, errs)
	}

	resp, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		Status:   *input.Status,
		Position: *input.Position,
		SenderId: c.getConnIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	c.logger.DebugContext(ctx, "player state relayed",
		"status", resp.PlayerState.Status.String(),
		"position", resp.PlayerState.Position,
		"updated_at", resp.PlayerState.UpdatedAt,
		"recipients", resp.Recipients,
	)
	return nil
}

type ChatMessageInput struct {
	Nickname string `json:"nickname" validate:"max=32"`
	Body     string `json:"body" validate:"required,max=500"`
}

func (c controller) handleChatMessage(ctx context.Context, cl *client, input ChatMessageInput) error {
	if errs, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %v", ErrValidationError, errs)
	}

	resp, err := c.roomService.SendChatMessage(ctx, &room.SendChatMessageParams{
		Nickname: input.Nickname,
		Body:     input.Body,
		SenderId: c.getConnIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	c.logger.DebugContext(ctx, "chat message relayed", "recipients", resp.Recipients)
	return nil
}
