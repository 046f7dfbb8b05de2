package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/angelmondragon/hatchery-backend/api/middleware"
	"github.com/angelmondragon/hatchery-backend/api/responses"
	"github.com/angelmondragon/hatchery-backend/api/validators"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/storage"
	"github.com/angelmondragon/hatchery-backend/pkg/types"
)

const (
	multipartMemory = 8 << 20
	formOverhead    = 1 << 20
)

type broadcastJSONRequest struct {
	Target   string          `json:"target"`
	Region   string          `json:"region"`
	District string          `json:"district"`
	UserIDs  json.RawMessage `json:"userIds"`
	Type     string          `json:"type"`
	Priority string          `json:"priority"`
	Message  string          `json:"message"`
	AdminID  string          `json:"adminId"`
}

type broadcastResponse struct {
	types.SuccessEnvelope
	Message       string                          `json:"message"`
	Count         int                             `json:"count"`
	Notifications []notifications.NotificationDTO `json:"notifications"`
	Notification  *notifications.NotificationDTO  `json:"notification,omitempty"`
}

// BroadcastNotification accepts the admin broadcast form. Attached files are
// uploaded first and recorded on every copy as story media. Plain JSON bodies
// are accepted for text-only broadcasts.
func BroadcastNotification(svc notifications.Service, uploader storage.Uploader, cfg config.NotificationsConfig, logg *logger.Logger) http.HandlerFunc {
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}
	maxFileBytes := int64(cfg.MaxUploadMB) << 20
	if maxFileBytes <= 0 {
		maxFileBytes = 25 << 20
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(r, w, logg)
			return
		}
		ctx := r.Context()

		var (
			input notifications.BroadcastInput
			parts []*multipart.FileHeader
		)
		if isJSON(r) {
			var body broadcastJSONRequest
			if err := validators.DecodeJSONBody(r, &body, validators.WithLimit(formOverhead), validators.SkipValidation()); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input = body.toInput()
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes*int64(maxFiles)+formOverhead)
			if err := r.ParseMultipartForm(multipartMemory); err != nil {
				responses.WriteError(ctx, logg, w, formError(err))
				return
			}
			defer func() { _ = r.MultipartForm.RemoveAll() }()
			input = formInput(r.MultipartForm)
			parts = r.MultipartForm.File["files"]
		}
		input.ActorID = middleware.UserIDFromContext(ctx)

		if len(parts) > maxFiles {
			responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d files can be attached", maxFiles))
			return
		}
		for _, part := range parts {
			if part.Size > maxFileBytes {
				responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodePayloadTooLarge, "%s exceeds %d MB", part.Filename, maxFileBytes>>20).
					WithDetails(map[string]any{"file": part.Filename, "maxBytes": maxFileBytes}))
				return
			}
		}

		// Reject bad audiences and labels before anything is uploaded.
		if _, err := notifications.ParseTarget(input.TargetInput); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if _, _, err := notifications.ParseKindAndPriority(input.Kind, input.Priority); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		attachments, err := uploadParts(r, uploader, parts)
		if err != nil {
			discardUploads(r, uploader, attachments, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.Attachments = attachments

		result, err := svc.Broadcast(ctx, input)
		if err != nil {
			discardUploads(r, uploader, attachments, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := broadcastResponse{
			SuccessEnvelope: types.OK(),
			Message:         result.Message,
			Count:           result.Count,
			Notifications:   notifications.FromModels(result.Notifications),
		}
		if result.BroadcastID == nil && len(resp.Notifications) == 1 {
			resp.Notification = &resp.Notifications[0]
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func (b broadcastJSONRequest) toInput() notifications.BroadcastInput {
	var userIDs any
	if len(b.UserIDs) > 0 && string(b.UserIDs) != "null" {
		userIDs = b.UserIDs
	}
	return notifications.BroadcastInput{
		TargetInput: notifications.TargetInput{
			Target:   b.Target,
			Region:   b.Region,
			District: b.District,
			UserIDs:  userIDs,
			AdminID:  b.AdminID,
		},
		Kind:     b.Type,
		Priority: b.Priority,
		Message:  b.Message,
	}
}

func formInput(form *multipart.Form) notifications.BroadcastInput {
	value := func(key string) string {
		if values := form.Value[key]; len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
		return ""
	}

	var userIDs any
	switch values := form.Value["userIds"]; len(values) {
	case 0:
	case 1:
		userIDs = values[0]
	default:
		userIDs = values
	}

	return notifications.BroadcastInput{
		TargetInput: notifications.TargetInput{
			Target:   value("target"),
			Region:   value("region"),
			District: value("district"),
			UserIDs:  userIDs,
			AdminID:  value("adminId"),
		},
		Kind:     value("type"),
		Priority: value("priority"),
		Message:  value("message"),
	}
}

func uploadParts(r *http.Request, uploader storage.Uploader, parts []*multipart.FileHeader) (dbtypes.Attachments, error) {
	attachments := make(dbtypes.Attachments, 0, len(parts))
	if len(parts) == 0 {
		return attachments, nil
	}
	if uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "file uploads are not configured")
	}
	for _, part := range parts {
		file, err := part.Open()
		if err != nil {
			return attachments, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
		}
		attachment, err := uploader.Upload(r.Context(), storage.File{
			Filename:    part.Filename,
			ContentType: part.Header.Get("Content-Type"),
			Body:        file,
		})
		_ = file.Close()
		if err != nil {
			return attachments, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

// discardUploads removes objects stored for a broadcast that never landed.
// Failures are logged and do not change the response.
func discardUploads(r *http.Request, uploader storage.Uploader, attachments dbtypes.Attachments, logg *logger.Logger) {
	if uploader == nil || len(attachments) == 0 {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	for _, attachment := range attachments {
		if err := uploader.Remove(ctx, attachment.StorageID); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "storage_id", attachment.StorageID), "failed to remove orphaned upload")
		}
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))), "application/json")
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "upload exceeds the allowed size")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
}
