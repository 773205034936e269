package organisation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/cache"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
)

type mockRepo struct {
	orgs      map[int64]*auth.Organisation
	users     map[string]*auth.User
	userReads int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		orgs: map[int64]*auth.Organisation{
			2: {ID: 2, UUID: "org-2", Name: "Demo", Status: auth.OrganisationLive},
		},
		users: map[string]*auth.User{
			"maya@demo": {ID: 11, Username: "maya@demo", OrganisationID: 2},
			"admin":     {ID: 1, Username: "admin", Admin: true},
		},
	}
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*auth.Organisation, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return o, nil
}

func (m *mockRepo) GetByUUID(_ context.Context, uuid string) (*auth.Organisation, error) {
	for _, o := range m.orgs {
		if o.UUID == uuid {
			return o, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) GetUserByUsername(_ context.Context, username string) (*auth.User, error) {
	m.userReads++
	u, ok := m.users[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func TestResolveUser(t *testing.T) {
	svc := NewService(newMockRepo(), nil, 0)

	uc, err := svc.ResolveUser(context.Background(), "maya@demo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.User.ID != 11 || uc.Organisation.Name != "Demo" {
		t.Errorf("unexpected user context: %+v", uc)
	}
}

func TestResolveUser_SuperAdminHasNoOrganisation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, 0)

	uc, err := svc.ResolveUser(context.Background(), "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uc.Organisation.ID != 0 {
		t.Errorf("expected no organisation, got %+v", uc.Organisation)
	}
}

func TestResolveUser_Unknown(t *testing.T) {
	svc := NewService(newMockRepo(), nil, 0)

	_, err := svc.ResolveUser(context.Background(), "ghost")
	if !errors.Is(err, auth.ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}
}

func TestResolveUser_Cached(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, cache.NewMemoryKV(), time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := svc.ResolveUser(context.Background(), "maya@demo"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.userReads != 1 {
		t.Errorf("expected one repository read, got %d", repo.userReads)
	}
}

func TestByUUID_Unresolved(t *testing.T) {
	svc := NewService(newMockRepo(), nil, 0)

	if _, err := svc.ByUUID(context.Background(), "org-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.ByUUID(context.Background(), "missing")
	if !errors.Is(err, db.ErrUnresolvedReference) {
		t.Errorf("expected unresolved reference, got %v", err)
	}
	var ue *db.UnresolvedError
	if !errors.As(err, &ue) || ue.Entity != "organisation" || ue.Key != "missing" {
		t.Errorf("unexpected error detail: %v", err)
	}
}
