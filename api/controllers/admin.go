package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/angelmondragon/hatchery-backend/api/responses"
	"github.com/angelmondragon/hatchery-backend/internal/cleanup"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/types"
)

// Sweeper is the manual trigger for the retention sweep.
type Sweeper interface {
	Run(ctx context.Context, scope cleanup.Scope) (*cleanup.Result, error)
}

type historyResponse struct {
	types.SuccessEnvelope
	Count   int                          `json:"count"`
	History []notifications.HistoryEntry `json:"history"`
}

type adminStoriesResponse struct {
	types.SuccessEnvelope
	Stories []notifications.NotificationDTO `json:"stories"`
	Count   int                             `json:"count"`
}

type deleteStoryResponse struct {
	types.SuccessEnvelope
	DeletedCount int64  `json:"deletedCount"`
	Message      string `json:"message"`
}

type cleanupResponse struct {
	types.SuccessEnvelope
	cleanup.Result
	Message string `json:"message"`
}

type latestPublicResponse struct {
	types.SuccessEnvelope
	Notification *notifications.NotificationDTO `json:"notification"`
	Message      string                         `json:"message,omitempty"`
}

func BroadcastHistory(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		history, err := svc.History(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, historyResponse{
			SuccessEnvelope: types.OK(),
			Count:           len(history),
			History:         history,
		})
	}
}

// AdminStories lists one live story per broadcast.
func AdminStories(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		rows, err := svc.AdminStories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stories := notifications.FromModels(rows)
		responses.WriteSuccess(w, adminStoriesResponse{
			SuccessEnvelope: types.OK(),
			Stories:         stories,
			Count:           len(stories),
		})
	}
}

// DeleteAdminStory removes every copy of the story's broadcast.
func DeleteAdminStory(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		storyID, err := uuidParam(r, "storyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deleted, err := svc.DeleteAdminStory(r.Context(), storyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteStoryResponse{
			SuccessEnvelope: types.OK(),
			DeletedCount:    deleted,
			Message:         "Story deleted successfully",
		})
	}
}

// TriggerCleanup runs a sweep inline. The scope query parameter selects
// "full" (default) or "stories". An overlapping sweep answers 409.
func TriggerCleanup(sweeper Sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cleanup unavailable"))
			return
		}
		scope, err := cleanup.ParseScope(r.URL.Query().Get("scope"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := sweeper.Run(r.Context(), scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cleanupResponse{
			SuccessEnvelope: types.OK(),
			Result:          *result,
			Message:         fmt.Sprintf("Deleted %d records", result.TotalDeleted),
		})
	}
}

// LatestPublic is unauthenticated; an empty store is not an error.
func LatestPublic(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		latest, err := svc.LatestPublic(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if latest == nil {
			responses.WriteSuccess(w, latestPublicResponse{SuccessEnvelope: types.OK(), Message: "No notifications"})
			return
		}
		dto := notifications.FromModel(*latest)
		responses.WriteSuccess(w, latestPublicResponse{SuccessEnvelope: types.OK(), Notification: &dto})
	}
}
