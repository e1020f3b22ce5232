package httpserver

import (
	"net/http"
	"time"

	"buildmart/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) drainNotifications(c *gin.Context) {
	notifications := currentSession(c).Inbox.Drain()
	c.JSON(http.StatusOK, gin.H{"count": len(notifications), "results": notifications})
}

// events streams notifications as server-sent events. Every notification
// is followed by a cart event carrying the current view.
func (h *handlers) events(c *gin.Context) {
	s := currentSession(c)
	ctx := c.Request.Context()
	ch := s.Inbox.Listen(ctx)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent("cart", s.Cart.View())
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			h.sendNotification(c, n)
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}

func (h *handlers) sendNotification(c *gin.Context, n domain.Notification) {
	c.SSEvent("notification", n)
	c.SSEvent("cart", currentSession(c).Cart.View())
	c.Writer.Flush()
}
