package notifications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
)

// Target is the parsed audience of a broadcast. The concrete types are the
// only implementations.
type Target interface {
	Kind() enums.BroadcastTarget
	isTarget()
}

// AllTarget reaches every approved seller, or only the sellers assigned to
// AdminRef when it is set.
type AllTarget struct {
	AdminRef string
}

type UsersTarget struct {
	IDs []uuid.UUID
}

type RegionTarget struct {
	Region string
}

type DistrictTarget struct {
	District string
}

// PublicTarget writes a single global record with no fan-out.
type PublicTarget struct{}

func (AllTarget) Kind() enums.BroadcastTarget      { return enums.BroadcastTargetAll }
func (UsersTarget) Kind() enums.BroadcastTarget    { return enums.BroadcastTargetUsers }
func (RegionTarget) Kind() enums.BroadcastTarget   { return enums.BroadcastTargetRegion }
func (DistrictTarget) Kind() enums.BroadcastTarget { return enums.BroadcastTargetDistrict }
func (PublicTarget) Kind() enums.BroadcastTarget   { return enums.BroadcastTargetPublic }

func (AllTarget) isTarget()      {}
func (UsersTarget) isTarget()    {}
func (RegionTarget) isTarget()   {}
func (DistrictTarget) isTarget() {}
func (PublicTarget) isTarget()   {}

// TargetInput is the raw audience description as submitted by an admin.
// UserIDs may be a JSON-encoded string, a list of strings or a single id.
type TargetInput struct {
	Target   string
	Region   string
	District string
	UserIDs  any
	AdminID  string
}

// ParseTarget validates the raw input and returns the matching Target variant.
func ParseTarget(in TargetInput) (Target, error) {
	raw := strings.TrimSpace(in.Target)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target is required")
	}
	kind, err := enums.ParseBroadcastTarget(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target")
	}

	switch kind {
	case enums.BroadcastTargetPublic:
		return PublicTarget{}, nil
	case enums.BroadcastTargetAll:
		return AllTarget{AdminRef: strings.TrimSpace(in.AdminID)}, nil
	case enums.BroadcastTargetRegion:
		region := strings.TrimSpace(in.Region)
		if region == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "region required")
		}
		return RegionTarget{Region: region}, nil
	case enums.BroadcastTargetDistrict:
		district := strings.TrimSpace(in.District)
		if district == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "district required")
		}
		return DistrictTarget{District: district}, nil
	case enums.BroadcastTargetUsers:
		ids, err := NormalizeUserIDs(in.UserIDs)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "userIds array required")
		}
		return UsersTarget{IDs: ids}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target")
	}
}

// NormalizeUserIDs accepts the shapes clients send for userIds and returns the
// de-duplicated ids in submission order. Blank input yields an empty list.
func NormalizeUserIDs(raw any) ([]uuid.UUID, error) {
	values, err := flattenUserIDs(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userIds")
	}

	ids := make([]uuid.UUID, 0, len(values))
	seen := make(map[uuid.UUID]struct{}, len(values))
	for _, value := range values {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid user id %q", value)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func flattenUserIDs(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return []string{v.String()}, nil
	case []uuid.UUID:
		out := make([]string, 0, len(v))
		for _, id := range v {
			out = append(out, id.String())
		}
		return out, nil
	case json.RawMessage:
		return flattenJSON(v)
	case []byte:
		return flattenJSON(v)
	case string:
		return flattenString(v)
	case []string:
		var out []string
		for _, item := range v {
			flat, err := flattenString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	case []any:
		var out []string
		for _, item := range v {
			flat, err := flattenUserIDs(item)
			if err != nil {
				return nil, err
			}
			out = append(out, flat...)
		}
		return out, nil
	default:
		return []string{strings.TrimSpace(fmt.Sprint(v))}, nil
	}
}

// flattenString decodes a JSON-serialised list or string and otherwise treats
// the value as a single id.
func flattenString(value string) ([]string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`) {
		return flattenJSON([]byte(trimmed))
	}
	return []string{trimmed}, nil
}

func flattenJSON(data []byte) ([]string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode userIds: %w", err)
	}
	return flattenUserIDs(decoded)
}
