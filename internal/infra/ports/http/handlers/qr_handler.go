package handlers

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/jortega/karaokejam/internal/application/config"
	"github.com/jortega/karaokejam/internal/application/constant"
	"github.com/jortega/karaokejam/internal/infra/ports/http/dto"
)

type QRHandler struct {
	cfg *config.Config
}

func NewQRHandler(cfg *config.Config) *QRHandler {
	return &QRHandler{cfg: cfg}
}

// Generate encodes the remote-control URL for a room as a PNG data URL so
// the host display can show it for participants to scan.
func (h *QRHandler) Generate(c echo.Context) error {
	roomID := c.QueryParam("room")
	if roomID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing room id"})
	}

	baseURL := h.baseURL(c.Request().Host)
	remoteURL := fmt.Sprintf("%s/remote.html?room=%s", baseURL, roomID)

	png, err := qrcode.Encode(remoteURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("encode qr", slog.Any(constant.Error, err), slog.String(constant.RoomID, roomID))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not generate qr"})
	}

	qrURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	return c.JSON(http.StatusOK, dto.QRResponse{QRURL: qrURL, RemoteURL: remoteURL})
}

func (h *QRHandler) baseURL(requestHost string) string {
	if h.cfg.Prod && requestHost != "" {
		return "https://" + requestHost
	}

	return fmt.Sprintf("http://%s:%s", localIP(), h.cfg.Port)
}

// localIP picks the LAN address remotes on the same network can reach,
// preferring private ranges over whatever else the machine has.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}

	var candidates []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			candidates = append(candidates, ip4.String())
		}
	}

	if len(candidates) == 0 {
		return "localhost"
	}

	for _, prefix := range []string{"192.168.", "10."} {
		for _, ip := range candidates {
			if strings.HasPrefix(ip, prefix) {
				return ip
			}
		}
	}

	return candidates[0]
}
