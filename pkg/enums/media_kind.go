package enums

import "strings"

// MediaKind classifies an attachment by its MIME family.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindAudio    MediaKind = "audio"
	MediaKindDocument MediaKind = "document"
	MediaKindOther    MediaKind = "other"
)

var validMediaKinds = []MediaKind{
	MediaKindImage,
	MediaKindVideo,
	MediaKindAudio,
	MediaKindDocument,
	MediaKindOther,
}

func (m MediaKind) String() string {
	return string(m)
}

func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// MediaKindFromMIME maps a content type such as "image/png" onto a kind.
func MediaKindFromMIME(contentType string) MediaKind {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	family, _, _ := strings.Cut(mediaType, "/")
	switch family {
	case "image":
		return MediaKindImage
	case "video":
		return MediaKindVideo
	case "audio":
		return MediaKindAudio
	case "application", "text":
		return MediaKindDocument
	default:
		return MediaKindOther
	}
}
