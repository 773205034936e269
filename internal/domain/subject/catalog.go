package subject

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ombhardwajj/avni-server/internal/platform/cache"
)

// Catalog serves subject types through a KV cache. Entries are keyed by
// organisation so a shared redis never leaks one organisation's catalog to another.
type Catalog struct {
	repo Repository
	kv   cache.KV
	ttl  time.Duration
}

func NewCatalog(repo Repository, kv cache.KV, ttl time.Duration) *Catalog {
	return &Catalog{repo: repo, kv: kv, ttl: ttl}
}

func subjectTypeKey(orgID int64, uuid string) string {
	return fmt.Sprintf("subjectType:%d:%s", orgID, uuid)
}

func (c *Catalog) SubjectType(ctx context.Context, orgID int64, uuid string) (*SubjectType, error) {
	key := subjectTypeKey(orgID, uuid)

	var st SubjectType
	err := cache.GetJSON(ctx, c.kv, key, &st)
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	found, err := c.repo.GetSubjectTypeByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.kv, key, found, c.ttl); err != nil {
		return nil, err
	}
	return found, nil
}

// Evict drops a cached subject type after it is edited.
func (c *Catalog) Evict(ctx context.Context, orgID int64, uuid string) error {
	return c.kv.Delete(ctx, subjectTypeKey(orgID, uuid))
}
