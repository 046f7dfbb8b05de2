package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

// Attachment references one uploaded file carried by a notification.
type Attachment struct {
	URL        string          `json:"url"`
	StorageID  string          `json:"storageId"`
	Filename   string          `json:"filename,omitempty"`
	MediaKind  enums.MediaKind `json:"fileType,omitempty"`
	UploadedAt time.Time       `json:"uploadedAt"`
}

// Attachments is persisted as a JSON array. Empty lists are written as "[]"
// so queries can compare against that literal on every driver.
type Attachments []Attachment

func (a *Attachments) Scan(src any) error {
	if src == nil {
		*a = Attachments{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("Attachments: unsupported Scan type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*a = Attachments{}
		return nil
	}

	var out []Attachment
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("Attachments: decode: %w", err)
	}
	if out == nil {
		out = []Attachment{}
	}
	*a = Attachments(out)
	return nil
}

func (a Attachments) Value() (driver.Value, error) {
	if len(a) == 0 {
		return EmptyAttachmentsJSON, nil
	}
	raw, err := json.Marshal([]Attachment(a))
	if err != nil {
		return nil, fmt.Errorf("Attachments: encode: %w", err)
	}
	return string(raw), nil
}

// EmptyAttachmentsJSON is the stored form of an attachment-free notification.
const EmptyAttachmentsJSON = "[]"
