package dashboard

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*GroupDashboard, error)
	GetByUUID(ctx context.Context, uuid string) (*GroupDashboard, error)
	// Save inserts when gd.ID is zero and updates otherwise.
	Save(ctx context.Context, gd *GroupDashboard) error
	// OthersInGroup returns the non-voided rows of groupID except excludeID.
	OthersInGroup(ctx context.Context, groupID, excludeID int64) ([]*GroupDashboard, error)
	ListByGroup(ctx context.Context, groupID int64) ([]*GroupDashboard, error)
	ExistsModifiedAfter(ctx context.Context, t time.Time) (bool, error)

	GetGroup(ctx context.Context, id int64) (*Group, error)
	// LockGroup loads the group and holds a row lock until the transaction
	// ends, serialising assignment changes within the group.
	LockGroup(ctx context.Context, id int64) (*Group, error)
	GetGroupByUUID(ctx context.Context, uuid string) (*Group, error)
	GetDashboard(ctx context.Context, id int64) (*Dashboard, error)
	GetDashboardByUUID(ctx context.Context, uuid string) (*Dashboard, error)
}
