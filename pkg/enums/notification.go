package enums

import (
	"fmt"
	"strings"
)

// NotificationKind is the severity label shown next to a notification.
type NotificationKind string

const (
	NotificationKindSuccess NotificationKind = "success"
	NotificationKindWarning NotificationKind = "warning"
	NotificationKindInfo    NotificationKind = "info"
	NotificationKindError   NotificationKind = "error"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindSuccess,
	NotificationKindWarning,
	NotificationKindInfo,
	NotificationKindError,
}

func (k NotificationKind) String() string {
	return string(k)
}

// IsValid checks whether the kind matches the canonical enum.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a kind; blank input yields info.
func ParseNotificationKind(value string) (NotificationKind, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return NotificationKindInfo, nil
	}
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

var validNotificationPriorities = []NotificationPriority{
	NotificationPriorityLow,
	NotificationPriorityMedium,
	NotificationPriorityHigh,
}

func (p NotificationPriority) String() string {
	return string(p)
}

func (p NotificationPriority) IsValid() bool {
	for _, candidate := range validNotificationPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseNotificationPriority converts raw input into a priority; blank input yields medium.
func ParseNotificationPriority(value string) (NotificationPriority, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return NotificationPriorityMedium, nil
	}
	for _, candidate := range validNotificationPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification priority %q", value)
}

// BroadcastTarget records which audience a broadcast addressed.
type BroadcastTarget string

const (
	BroadcastTargetAll      BroadcastTarget = "all"
	BroadcastTargetUsers    BroadcastTarget = "users"
	BroadcastTargetRegion   BroadcastTarget = "region"
	BroadcastTargetDistrict BroadcastTarget = "district"
	BroadcastTargetPublic   BroadcastTarget = "public"
)

var validBroadcastTargets = []BroadcastTarget{
	BroadcastTargetAll,
	BroadcastTargetUsers,
	BroadcastTargetRegion,
	BroadcastTargetDistrict,
	BroadcastTargetPublic,
}

func (b BroadcastTarget) String() string {
	return string(b)
}

func (b BroadcastTarget) IsValid() bool {
	for _, candidate := range validBroadcastTargets {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBroadcastTarget is case sensitive, matching the stored values.
func ParseBroadcastTarget(value string) (BroadcastTarget, error) {
	for _, candidate := range validBroadcastTargets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid broadcast target %q", value)
}
