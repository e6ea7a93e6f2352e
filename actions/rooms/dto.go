package rooms

import (
	"errors"
	"regexp"

	"grepcoin_multiplayer/internal/game"
)

var gameSlugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type CreateRoomDTO struct {
	GameSlug string `json:"gameSlug"`
}

func (dto *CreateRoomDTO) Validate() error {
	if dto.GameSlug == "" {
		return errors.New("game_slug_is_required")
	}
	if len(dto.GameSlug) > 64 || !gameSlugPattern.MatchString(dto.GameSlug) {
		return errors.New("invalid_game_slug")
	}
	return nil
}

type EndGameDTO struct {
	WinnerID string `json:"winnerId"`
}

type ListRoomsQuery struct {
	GameSlug string
	Status   game.Status
}

func (q ListRoomsQuery) Validate() error {
	switch q.Status {
	case "", game.StatusWaiting, game.StatusCountdown, game.StatusPlaying, game.StatusFinished:
		return nil
	}
	return errors.New("invalid_status")
}

func (q ListRoomsQuery) Matches(room game.RoomSnapshot) bool {
	if q.GameSlug != "" && room.GameSlug != q.GameSlug {
		return false
	}
	if q.Status != "" && room.State.Status != q.Status {
		return false
	}
	return true
}
