package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gatherly/gatherly/internal/hub"
)

func HubMiddleware(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("hub", h)
		c.Next()
	}
}

func GetHub(c *gin.Context) *hub.Hub {
	h, exists := c.Get("hub")
	if !exists {
		return nil
	}
	return h.(*hub.Hub)
}
