package server

import (
	"github.com/labstack/echo/v4"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/infra/ports/http/handlers"
	"github.com/jortega/karaokejam/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	roomHandler *handlers.RoomHandler,
	catalogHandler *handlers.CatalogHandler,
	qrHandler *handlers.QRHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())
	e.Use(middleware.IdentityMiddleware(cfg.JWTSecret))

	api := e.Group("/api")
	{
		api.GET("/songs", catalogHandler.Songs)
		api.GET("/song-url", catalogHandler.SongURL)

		api.POST("/rooms", roomHandler.Create)
		api.GET("/rooms/:roomId", roomHandler.Exists)

		api.GET("/qr", qrHandler.Generate)
	}

	e.GET("/ws", wsHandler.Handle)

	e.Static("/", cfg.StaticDir)

	return e
}
