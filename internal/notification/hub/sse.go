package hub

import (
	"encoding/json"
	"time"

	"sourcing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// ServeSSE streams events to an authenticated client until it disconnects.
func (h *Hub) ServeSSE(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	cl := h.subscribe(identity.UserID(), identity.HasRole(httpkit.RoleAdmin))
	defer h.unsubscribe(cl)

	c.SSEvent("connected", gin.H{"userId": identity.UserID()})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case <-ticker.C:
			c.SSEvent("ping", "")
			c.Writer.Flush()
		case event, ok := <-cl.events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			c.SSEvent(string(event.Type), string(data))
			c.Writer.Flush()
		}
	}
}
