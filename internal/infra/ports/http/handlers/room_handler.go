package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/infra/ports/http/dto"
	"github.com/jortega/karaokejam/internal/usecase"
)

type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase) *RoomHandler {
	return &RoomHandler{
		roomUsecase: roomUsecase,
	}
}

func (h *RoomHandler) Create(c echo.Context) error {
	roomID, err := h.roomUsecase.CreateRoom(c.Request().Context())
	if err != nil {
		slog.Error("create room failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create room"})
	}

	return c.JSON(http.StatusOK, dto.CreateRoomResponse{RoomID: roomID})
}

func (h *RoomHandler) Exists(c echo.Context) error {
	roomID := c.Param("roomId")

	exists := h.roomUsecase.RoomExists(c.Request().Context(), roomID)

	return c.JSON(http.StatusOK, dto.RoomExistsResponse{Exists: exists})
}
