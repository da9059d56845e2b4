package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/flicky/bakery-api/internal/notify"
)

type FeedHandler struct {
	hub *notify.Hub
}

func NewFeedHandler(hub *notify.Hub) *FeedHandler {
	return &FeedHandler{hub: hub}
}

// Orders streams order events to an admin dashboard until it disconnects.
func (h *FeedHandler) Orders(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request); err != nil {
		// the upgrader has already written the HTTP error
		_ = c.Error(err)
	}
}
