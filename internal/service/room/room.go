package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

type CreateRoomParams struct {
	VideoURL string
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (protocol.RoomInfo, error) {
	videoId, err := ytvideodata.ParseVideoID(params.VideoURL)
	if err != nil {
		return protocol.RoomInfo{}, fmt.Errorf("%w: %s", ErrInvalidVideoReference, params.VideoURL)
	}

	videoData, err := s.videoResolver.Get(ctx, videoId)
	if err != nil {
		if errors.Is(err, ytvideodata.ErrVideoNotFound) {
			return protocol.RoomInfo{}, fmt.Errorf("%w: %s", ErrInvalidVideoReference, videoId)
		}
		return protocol.RoomInfo{}, fmt.Errorf("failed to resolve video: %w", err)
	}

	r := room.Room{
		RoomId:      s.newRoomId(),
		VideoId:     videoId,
		VideoTitle:  videoData.Title,
		Icebreakers: s.generateIcebreakers(ctx, videoData.Title),
		Player: room.Player{
			Status: int(protocol.StatusUnstarted),
		},
	}

	if err := s.setRoom(ctx, r); err != nil {
		return protocol.RoomInfo{}, err
	}

	s.logger.InfoContext(ctx, "room created", "room_id", r.RoomId, "video_id", videoId)
	return toRoomInfo(r), nil
}

func (s service) setRoom(ctx context.Context, r room.Room) error {
	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:      r.RoomId,
		VideoId:     r.VideoId,
		VideoTitle:  r.VideoTitle,
		Icebreakers: r.Icebreakers,
		Player:      r.Player,
	}); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	// nobody is connected yet
	if err := s.roomRepo.ExpireRoom(ctx, &room.ExpireRoomParams{
		RoomId: r.RoomId,
		TTL:    s.cfg.RoomIdleTTL,
	}); err != nil {
		return fmt.Errorf("failed to expire room: %w", err)
	}

	return nil
}

func (s service) GetRoom(ctx context.Context, roomId string) (protocol.RoomInfo, error) {
	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		return protocol.RoomInfo{}, err
	}

	return toRoomInfo(r), nil
}

type EnsureAdHocRoomParams struct {
	RoomId  string
	VideoId string
}

// EnsureAdHocRoom creates roomId bound to the given video when it does not exist yet.
// Title and icebreakers are resolved in the background and announced with roomInfoUpdate.
func (s service) EnsureAdHocRoom(ctx context.Context, params *EnsureAdHocRoomParams) error {
	if !s.cfg.AllowAdHocRooms {
		return ErrAdHocRoomsDisabled
	}

	videoId, err := ytvideodata.ParseVideoID(params.VideoId)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVideoReference, params.VideoId)
	}

	unlock := s.locks.Lock(params.RoomId)
	defer unlock()

	if _, err := s.getRoom(ctx, params.RoomId); err == nil {
		return nil
	} else if !errors.Is(err, ErrRoomNotFound) {
		return err
	}

	if err := s.setRoom(ctx, room.Room{
		RoomId:      params.RoomId,
		VideoId:     videoId,
		Icebreakers: []string{},
		Player: room.Player{
			Status: int(protocol.StatusUnstarted),
		},
	}); err != nil {
		if errors.Is(err, room.ErrRoomAlreadyExists) {
			return nil
		}
		return err
	}

	s.logger.InfoContext(ctx, "ad-hoc room created", "room_id", params.RoomId, "video_id", videoId)
	go s.resolveRoomInfo(context.WithoutCancel(ctx), params.RoomId, videoId)
	return nil
}

func (s service) resolveRoomInfo(ctx context.Context, roomId, videoId string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	var title string
	videoData, err := s.videoResolver.Get(ctx, videoId)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to resolve video", "error", err, "video_id", videoId)
	} else {
		title = videoData.Title
	}

	icebreakers := s.generateIcebreakers(ctx, title)

	unlock := s.locks.Lock(roomId)
	defer unlock()

	if err := s.roomRepo.UpdateRoomInfo(ctx, &room.UpdateRoomInfoParams{
		RoomId:      roomId,
		VideoTitle:  title,
		Icebreakers: icebreakers,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to update room info", "error", err, "room_id", roomId)
		return
	}

	r, err := s.getRoom(ctx, roomId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get room", "error", err, "room_id", roomId)
		return
	}

	if _, err := s.broadcast(ctx, roomId, "", protocol.TypeRoomInfoUpdate, toRoomInfo(r)); err != nil {
		s.logger.ErrorContext(ctx, "failed to broadcast room info", "error", err)
	}
}
