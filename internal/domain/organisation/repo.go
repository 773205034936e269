package organisation

import (
	"context"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*auth.Organisation, error)
	GetByUUID(ctx context.Context, uuid string) (*auth.Organisation, error)
	GetUserByUsername(ctx context.Context, username string) (*auth.User, error)
}
