package handler

import (
	"net/http"

	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
)

// NotificationHandler hands queued toasts to the front end
type NotificationHandler struct {
	feed *service.NotificationFeed
}

func NewNotificationHandler(feed *service.NotificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// Drain returns every pending notification, oldest first, and clears the queue
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.feed.Drain())
}
