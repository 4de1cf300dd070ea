package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/infra/adapters/sqlite"
	"github.com/jortega/karaokejam/internal/infra/ports/http/dto"
	"github.com/jortega/karaokejam/internal/usecase"
)

type CatalogHandler struct {
	catalogUsecase usecase.CatalogUsecase
}

func NewCatalogHandler(catalogUsecase usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{
		catalogUsecase: catalogUsecase,
	}
}

func (h *CatalogHandler) Songs(c echo.Context) error {
	grouped, err := h.catalogUsecase.ListGrouped(c.Request().Context())
	if err != nil {
		slog.Error("list songs failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not list songs"})
	}

	return c.JSON(http.StatusOK, grouped)
}

func (h *CatalogHandler) SongURL(c echo.Context) error {
	song := c.QueryParam("song")
	if song == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "song not specified"})
	}

	url, err := h.catalogUsecase.SongURL(c.Request().Context(), song)
	if errors.Is(err, sqlite.ErrSongNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "song not found"})
	}
	if err != nil {
		slog.Error("get song url failed", slog.Any(constant.Error, err), slog.String(constant.Song, song))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	return c.JSON(http.StatusOK, dto.SongURLResponse{URL: url})
}
