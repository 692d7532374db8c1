package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bloodlink/pkg/types"
)

func (s *Service) handleGetMyNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	notes, err := s.notifications.NotificationsByUser(r.Context(), userID, unreadOnly)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to fetch notifications")
		s.internalServerError(w)
		return
	}

	s.writeJSON(w, http.StatusOK, notes)
}

func (s *Service) handlePostNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))

	err = s.notifications.MarkRead(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, types.ErrNotificationNotFound) {
			s.writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		s.logger.WithError(err).WithField("notification_id", id).Error("failed to mark notification read")
		s.internalServerError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
