package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	// Ready reports the number of live sessions; nil means always ready.
	Ready func() int
}

func NewHealthHandler(ready func() int) *HealthHandler { return &HealthHandler{Ready: ready} }

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h == nil || h.Ready == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_sessions": h.Ready()})
}
