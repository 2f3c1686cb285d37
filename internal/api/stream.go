package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/miradorstack/opsboard/internal/logs"
)

const streamWriteTimeout = 5 * time.Second

// streamLogs pushes filtered feed batches as JSON arrays until either side goes away.
func (h *handlers) streamLogs(c *gin.Context) {
	if h.cfg.Feed == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Log stream unavailable", Code: "NOT_AVAILABLE"})
		return
	}
	filter := logs.DecodeStreamFilter(c.Request.URL.Query())
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	batches, cancel := h.cfg.Feed.Subscribe()
	defer cancel()

	// The client never sends data; reading surfaces its close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case batch, ok := <-batches:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"),
					time.Now().Add(streamWriteTimeout))
				return
			}
			var out []logs.Entry
			for _, e := range batch {
				if filter.Match(e) {
					out = append(out, e)
				}
			}
			if len(out) == 0 {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(logs.ToDTOList(out)); err != nil {
				h.logger.Debug("log stream write failed", slog.Any("error", err))
				return
			}
		}
	}
}
