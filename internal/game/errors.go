package game

import "errors"

var (
	ErrRoomNotFound       = errors.New("room_not_found")
	ErrGameAlreadyStarted = errors.New("game_already_started")
	ErrMissingIdentity    = errors.New("missing_identity")
	ErrInvalidMessage     = errors.New("invalid_message")
	ErrInvalidScore       = errors.New("invalid_score")
	ErrRateLimited        = errors.New("rate_limited")
)
