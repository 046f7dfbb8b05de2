package controllers

import (
	"net/http"

	"github.com/angelmondragon/hatchery-backend/api/responses"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/types"
)

type notificationListResponse struct {
	types.SuccessEnvelope
	Count         int64                           `json:"count"`
	Notifications []notifications.NotificationDTO `json:"notifications"`
}

type storyListResponse struct {
	types.SuccessEnvelope
	Stories []notifications.StoryDTO `json:"stories"`
	Count   int                      `json:"count"`
}

type markReadResponse struct {
	types.SuccessEnvelope
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}

type deleteAllResponse struct {
	types.SuccessEnvelope
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

type countResponse struct {
	types.SuccessEnvelope
	notifications.Counts
}

func unavailable(r *http.Request, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
}

// ListNotifications returns the user's own notifications merged with global ones.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notificationListResponse{
			SuccessEnvelope: types.OK(),
			Count:           int64(len(rows)),
			Notifications:   notifications.FromModels(rows),
		})
	}
}

// ListUnreadNotifications reports the unread count separately from the list.
func ListUnreadNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUnread(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notificationListResponse{
			SuccessEnvelope: types.OK(),
			Count:           result.Count,
			Notifications:   notifications.FromModels(result.Notifications),
		})
	}
}

func ListUserStories(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ActiveStories(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stories := notifications.StoriesFromModels(rows)
		responses.WriteSuccess(w, storyListResponse{
			SuccessEnvelope: types.OK(),
			Stories:         stories,
			Count:           len(stories),
		})
	}
}

func CountNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		counts, err := svc.Count(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, countResponse{SuccessEnvelope: types.OK(), Counts: *counts})
	}
}

// MarkNotificationRead succeeds for notifications that are already read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Marked as read")
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, markReadResponse{
			SuccessEnvelope: types.OK(),
			Message:         "All marked as read",
			Updated:         updated,
		})
	}
}

func DeleteNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Deleted")
	}
}

func DeleteAllNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		userID, err := uuidParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deleted, err := svc.DeleteAllForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteAllResponse{
			SuccessEnvelope: types.OK(),
			Message:         "Deleted all notifications for user",
			Deleted:         deleted,
		})
	}
}
