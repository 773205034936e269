// Package organisation resolves organisations and the users acting for them.
package organisation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/cache"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
)

type Service struct {
	repo Repository
	kv   cache.KV
	ttl  time.Duration
}

// NewService caches resolved user contexts in kv for ttl. A zero ttl disables caching.
func NewService(repo Repository, kv cache.KV, ttl time.Duration) *Service {
	return &Service{repo: repo, kv: kv, ttl: ttl}
}

// ResolveUser implements auth.UserResolver.
func (s *Service) ResolveUser(ctx context.Context, username string) (auth.UserContext, error) {
	key := "userContext:" + username
	var uc auth.UserContext
	if s.kv != nil && s.ttl > 0 {
		if err := cache.GetJSON(ctx, s.kv, key, &uc); err == nil {
			return uc, nil
		}
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		return auth.UserContext{}, auth.ErrUnknownUser
	}
	if err != nil {
		return auth.UserContext{}, fmt.Errorf("load user %s: %w", username, err)
	}
	uc.User = *user

	// super admins belong to no organisation
	if user.OrganisationID != 0 {
		org, err := s.repo.GetByID(ctx, user.OrganisationID)
		if err != nil {
			return auth.UserContext{}, fmt.Errorf("load organisation %d: %w", user.OrganisationID, err)
		}
		uc.Organisation = *org
	}

	if s.kv != nil && s.ttl > 0 {
		_ = cache.SetJSON(ctx, s.kv, key, uc, s.ttl)
	}
	return uc, nil
}

// ByUUID resolves an organisation reference. An unknown uuid is reported as
// an unresolved reference rather than a missing record.
func (s *Service) ByUUID(ctx context.Context, uuid string) (*auth.Organisation, error) {
	org, err := s.repo.GetByUUID(ctx, uuid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, &db.UnresolvedError{Entity: "organisation", Key: uuid}
	}
	return org, err
}
