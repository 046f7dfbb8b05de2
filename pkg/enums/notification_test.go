package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotificationKindDefaultsToInfo(t *testing.T) {
	kind, err := ParseNotificationKind("")
	require.NoError(t, err)
	assert.Equal(t, NotificationKindInfo, kind)

	kind, err = ParseNotificationKind(" Warning ")
	require.NoError(t, err)
	assert.Equal(t, NotificationKindWarning, kind)

	_, err = ParseNotificationKind("critical")
	assert.Error(t, err)
}

func TestParseNotificationPriorityDefaultsToMedium(t *testing.T) {
	priority, err := ParseNotificationPriority("  ")
	require.NoError(t, err)
	assert.Equal(t, NotificationPriorityMedium, priority)

	priority, err = ParseNotificationPriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, NotificationPriorityHigh, priority)

	_, err = ParseNotificationPriority("urgent")
	assert.Error(t, err)
}

func TestParseBroadcastTarget(t *testing.T) {
	for _, raw := range []string{"all", "users", "region", "district", "public"} {
		target, err := ParseBroadcastTarget(raw)
		require.NoError(t, err)
		assert.True(t, target.IsValid())
	}
	_, err := ParseBroadcastTarget("everyone")
	assert.Error(t, err)
}

func TestMediaKindFromMIME(t *testing.T) {
	tests := map[string]MediaKind{
		"image/png":                 MediaKindImage,
		"video/mp4":                 MediaKindVideo,
		"audio/mpeg":                MediaKindAudio,
		"application/pdf":           MediaKindDocument,
		"text/plain; charset=utf-8": MediaKindDocument,
		"":                          MediaKindOther,
		"font/woff2":                MediaKindOther,
	}
	for mime, want := range tests {
		assert.Equal(t, want, MediaKindFromMIME(mime), mime)
	}
}
