package rooms

import (
	"errors"
	"net/http"

	"grepcoin_multiplayer/internal/game"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/buffalo/render"
	"github.com/rs/zerolog/log"
)

var renderer = render.New(render.Options{})

type RoomsController struct {
	Coordinator *game.Coordinator
}

func NewRoomsController(coordinator *game.Coordinator) *RoomsController {
	return &RoomsController{Coordinator: coordinator}
}

func renderError(ctx buffalo.Context, status int, code string) error {
	return ctx.Render(status, renderer.JSON(map[string]any{
		"error": code,
	}))
}

func (controller *RoomsController) CreateRoom(ctx buffalo.Context) error {
	var dto CreateRoomDTO
	if err := ctx.Bind(&dto); err != nil {
		log.Error().Err(err).Msg("Failed to bind create room body.")
		return renderError(ctx, http.StatusBadRequest, "invalid_body")
	}
	if err := dto.Validate(); err != nil {
		return renderError(ctx, http.StatusBadRequest, err.Error())
	}

	roomID := controller.Coordinator.CreateRoom(dto.GameSlug)
	room, _ := controller.Coordinator.Room(roomID)

	return ctx.Render(http.StatusCreated, renderer.JSON(map[string]any{
		"roomId": roomID,
		"room":   room,
	}))
}

func (controller *RoomsController) ListRooms(ctx buffalo.Context) error {
	query := ListRoomsQuery{
		GameSlug: ctx.Param("gameSlug"),
		Status:   game.Status(ctx.Param("status")),
	}
	if err := query.Validate(); err != nil {
		return renderError(ctx, http.StatusBadRequest, err.Error())
	}

	rooms := make([]game.RoomSnapshot, 0)
	for _, room := range controller.Coordinator.Rooms() {
		if query.Matches(room) {
			rooms = append(rooms, room)
		}
	}

	return ctx.Render(http.StatusOK, renderer.JSON(map[string]any{
		"rooms": rooms,
	}))
}

func (controller *RoomsController) GetRoom(ctx buffalo.Context) error {
	roomID := ctx.Param("roomID")

	if room, ok := controller.Coordinator.Room(roomID); ok {
		return ctx.Render(http.StatusOK, renderer.JSON(room))
	}

	owner, err := controller.Coordinator.LocateRoom(ctx, roomID)
	if errors.Is(err, game.ErrRoomNotFound) {
		return renderError(ctx, http.StatusNotFound, game.ErrRoomNotFound.Error())
	}
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Msg("Failed to locate room.")
		return renderError(ctx, http.StatusInternalServerError, "directory_unavailable")
	}

	return ctx.Render(http.StatusMisdirectedRequest, renderer.JSON(map[string]any{
		"error":      "room_on_other_instance",
		"instanceId": owner,
	}))
}

// EndGame is the trigger game-specific logic uses to finish a match.
func (controller *RoomsController) EndGame(ctx buffalo.Context) error {
	var dto EndGameDTO
	if ctx.Request().ContentLength > 0 {
		if err := ctx.Bind(&dto); err != nil {
			log.Error().Err(err).Msg("Failed to bind end game body.")
			return renderError(ctx, http.StatusBadRequest, "invalid_body")
		}
	}

	room, err := controller.Coordinator.EndGame(ctx.Param("roomID"), dto.WinnerID)
	if errors.Is(err, game.ErrRoomNotFound) {
		return renderError(ctx, http.StatusNotFound, err.Error())
	}
	if err != nil {
		return renderError(ctx, http.StatusInternalServerError, err.Error())
	}

	return ctx.Render(http.StatusOK, renderer.JSON(room))
}
