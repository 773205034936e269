package subject

import (
	"context"

	"github.com/ombhardwajj/avni-server/internal/platform/query"
)

type Repository interface {
	Create(ctx context.Context, s *Subject) error
	Update(ctx context.Context, s *Subject) error
	GetByUUID(ctx context.Context, uuid string) (*Subject, error)
	Void(ctx context.Context, uuid string, userID int64) error

	GetSubjectTypeByUUID(ctx context.Context, uuid string) (*SubjectType, error)
	GetGenderByUUID(ctx context.Context, uuid string) (*Gender, error)

	// Search and Count execute statements rendered by ResultQuery and CountQuery.
	Search(ctx context.Context, stmt query.Statement) ([]map[string]interface{}, error)
	Count(ctx context.Context, stmt query.Statement) (int64, error)
}
