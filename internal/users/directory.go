package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrAdminNotFound is returned when an admin reference matches no admin.
var ErrAdminNotFound = errors.New("admin not found")

// AllSellersLabel stands in for recipient names when a broadcast reached every seller.
const AllSellersLabel = "All Sellers"

// Filter narrows the approved-user set. Zero-valued fields do not filter.
type Filter struct {
	AssignedAdminID *uuid.UUID
	Region          string
	District        string
	IDs             []uuid.UUID
}

func (f Filter) normalized() Filter {
	f.Region = strings.TrimSpace(f.Region)
	f.District = strings.TrimSpace(f.District)
	return f
}

// Directory is the read-only view of sellers and admins needed to address broadcasts.
type Directory interface {
	ApprovedUserIDs(ctx context.Context, filter Filter) ([]uuid.UUID, error)
	ResolveAdmin(ctx context.Context, ref string) (uuid.UUID, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}
