package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/api/responses"
	"github.com/angelmondragon/hatchery-backend/api/validators"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/types"
)

type createNotificationRequest struct {
	UserID            string `json:"userId" validate:"required,uuid"`
	Type              string `json:"type" validate:"omitempty,oneof=success warning info error"`
	Priority          string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Message           string `json:"message" validate:"required,notblank"`
	RelatedHatcheryID string `json:"relatedHatcheryId"`
	RelatedReportID   string `json:"relatedReportId"`
}

type createNotificationResponse struct {
	types.SuccessEnvelope
	Message      string                        `json:"message"`
	Notification notifications.NotificationDTO `json:"notification"`
}

// CreateNotification backs both the system-key and the bearer create routes.
func CreateNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}

		var body createNotificationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hatcheryID, err := optionalUUID(body.RelatedHatcheryID, "relatedHatcheryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reportID, err := optionalUUID(body.RelatedReportID, "relatedReportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), notifications.CreateInput{
			UserID:            uuid.MustParse(body.UserID),
			Kind:              body.Type,
			Priority:          body.Priority,
			Message:           body.Message,
			RelatedHatcheryID: hatcheryID,
			RelatedReportID:   reportID,
			Origin:            "api",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createNotificationResponse{
			SuccessEnvelope: types.OK(),
			Message:         "Notification created",
			Notification:    notifications.FromModel(*created),
		})
	}
}
