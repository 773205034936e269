package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

type mockRepo struct {
	rows       map[int64]*GroupDashboard
	groups     map[int64]*Group
	dashboards map[int64]*Dashboard
	nextID     int64
	locks      int
	now        time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		rows: make(map[int64]*GroupDashboard),
		groups: map[int64]*Group{
			1: {ID: 1, UUID: "g-field", Name: "Field workers"},
			2: {ID: 2, UUID: "g-super", Name: "Supervisors"},
		},
		dashboards: map[int64]*Dashboard{
			10: {ID: 10, UUID: "d-anc", Name: "ANC"},
			11: {ID: 11, UUID: "d-pnc", Name: "PNC"},
			12: {ID: 12, UUID: "d-tb", Name: "TB"},
		},
		nextID: 100,
		now:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepo) add(gd GroupDashboard) *GroupDashboard {
	cp := gd
	m.rows[gd.ID] = &cp
	return &cp
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*GroupDashboard, error) {
	gd, ok := m.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *gd
	return &cp, nil
}

func (m *mockRepo) GetByUUID(_ context.Context, uuid string) (*GroupDashboard, error) {
	for _, gd := range m.rows {
		if gd.UUID == uuid {
			cp := *gd
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) Save(_ context.Context, gd *GroupDashboard) error {
	if gd.ID == 0 {
		m.nextID++
		gd.ID = m.nextID
	}
	gd.LastModifiedAt = m.now
	cp := *gd
	m.rows[gd.ID] = &cp
	return nil
}

func (m *mockRepo) OthersInGroup(_ context.Context, groupID, excludeID int64) ([]*GroupDashboard, error) {
	var out []*GroupDashboard
	for _, gd := range m.rows {
		if gd.GroupID == groupID && gd.ID != excludeID && !gd.Voided {
			cp := *gd
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) ListByGroup(_ context.Context, groupID int64) ([]*GroupDashboard, error) {
	var out []*GroupDashboard
	for _, gd := range m.rows {
		if gd.GroupID == groupID && !gd.Voided {
			cp := *gd
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) ExistsModifiedAfter(_ context.Context, t time.Time) (bool, error) {
	for _, gd := range m.rows {
		if gd.LastModifiedAt.After(t) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) GetGroup(_ context.Context, id int64) (*Group, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) LockGroup(ctx context.Context, id int64) (*Group, error) {
	m.locks++
	return m.GetGroup(ctx, id)
}

func (m *mockRepo) GetGroupByUUID(_ context.Context, uuid string) (*Group, error) {
	for _, g := range m.groups {
		if g.UUID == uuid {
			return g, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) GetDashboard(_ context.Context, id int64) (*Dashboard, error) {
	if d, ok := m.dashboards[id]; ok {
		return d, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) GetDashboardByUUID(_ context.Context, uuid string) (*Dashboard, error) {
	for _, d := range m.dashboards {
		if d.UUID == uuid {
			return d, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockRepo) count(groupID int64, pick func(*GroupDashboard) bool) int {
	n := 0
	for _, gd := range m.rows {
		if gd.GroupID == groupID && !gd.Voided && pick(gd) {
			n++
		}
	}
	return n
}

func isPrimary(gd *GroupDashboard) bool   { return gd.PrimaryDashboard }
func isSecondary(gd *GroupDashboard) bool { return gd.SecondaryDashboard }

var admin = auth.UserContext{
	User:         auth.User{ID: 7, Username: "admin@demo", OrganisationID: 3, OrgAdmin: true},
	Organisation: auth.Organisation{ID: 3, UUID: "org-demo", Status: auth.OrganisationLive},
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, db.NopTransactor{}, zerolog.Nop()), repo
}

func TestEdit_PromotingDemotesPreviousPrimary(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true, OrganisationID: 3})
	repo.add(GroupDashboard{ID: 2, UUID: "gd-2", GroupID: 1, DashboardID: 11, OrganisationID: 3})
	repo.add(GroupDashboard{ID: 3, UUID: "gd-3", GroupID: 2, DashboardID: 12, PrimaryDashboard: true, OrganisationID: 3})

	gd, err := svc.Edit(context.Background(), admin, 2, Contract{GroupID: 1, DashboardID: 11, PrimaryDashboard: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gd.PrimaryDashboard {
		t.Error("expected edited row to be primary")
	}
	if repo.rows[1].PrimaryDashboard {
		t.Error("expected previous primary to be demoted")
	}
	if repo.rows[1].LastModifiedByID != admin.User.ID {
		t.Error("expected demoted row to record the acting user")
	}
	if !repo.rows[3].PrimaryDashboard {
		t.Error("other groups must not be touched")
	}
	if n := repo.count(1, isPrimary); n != 1 {
		t.Errorf("expected exactly one primary in group, got %d", n)
	}
	if repo.locks != 1 {
		t.Errorf("expected the group to be locked once, got %d", repo.locks)
	}
}

func TestEdit_SecondaryDemotionLeavesPrimary(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true})
	repo.add(GroupDashboard{ID: 2, UUID: "gd-2", GroupID: 1, DashboardID: 11, SecondaryDashboard: true})
	repo.add(GroupDashboard{ID: 3, UUID: "gd-3", GroupID: 1, DashboardID: 12})

	if _, err := svc.Edit(context.Background(), admin, 3, Contract{GroupID: 1, DashboardID: 12, SecondaryDashboard: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.rows[1].PrimaryDashboard {
		t.Error("primary must survive a secondary promotion")
	}
	if repo.rows[2].SecondaryDashboard {
		t.Error("expected previous secondary to be demoted")
	}
	if n := repo.count(1, isSecondary); n != 1 {
		t.Errorf("expected one secondary, got %d", n)
	}
}

func TestEdit_IgnoresVoidedRows(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true, Voided: true})
	repo.add(GroupDashboard{ID: 2, UUID: "gd-2", GroupID: 1, DashboardID: 11})

	if _, err := svc.Edit(context.Background(), admin, 2, Contract{GroupID: 1, DashboardID: 11, PrimaryDashboard: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.rows[1].PrimaryDashboard {
		t.Error("voided rows are not re-saved")
	}
}

func TestEdit_RepeatedPromotionsKeepOnePrimary(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10})
	repo.add(GroupDashboard{ID: 2, UUID: "gd-2", GroupID: 1, DashboardID: 11})
	repo.add(GroupDashboard{ID: 3, UUID: "gd-3", GroupID: 1, DashboardID: 12})

	for _, id := range []int64{1, 3, 2, 1, 2} {
		dash := repo.rows[id].DashboardID
		if _, err := svc.Edit(context.Background(), admin, id, Contract{GroupID: 1, DashboardID: dash, PrimaryDashboard: true, SecondaryDashboard: true}); err != nil {
			t.Fatalf("edit %d: %v", id, err)
		}
		if n := repo.count(1, isPrimary); n != 1 {
			t.Fatalf("after edit %d: expected one primary, got %d", id, n)
		}
		if n := repo.count(1, isSecondary); n != 1 {
			t.Fatalf("after edit %d: expected one secondary, got %d", id, n)
		}
	}
}

func TestEdit_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Edit(context.Background(), admin, 99, Contract{GroupID: 1, DashboardID: 10})
	if !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_InvalidReferences(t *testing.T) {
	svc, repo := newTestService()
	tests := []struct {
		name     string
		contract Contract
	}{
		{"unknown group", Contract{GroupID: 9, DashboardID: 10}},
		{"unknown dashboard", Contract{GroupID: 1, DashboardID: 99}},
		{"missing ids", Contract{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(context.Background(), admin, []Contract{tt.contract})
			if !validation.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(repo.rows) != 0 {
		t.Errorf("expected nothing saved, got %d rows", len(repo.rows))
	}
}

func TestSave_InvalidReferenceMessage(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Save(context.Background(), admin, []Contract{{GroupID: 9, DashboardID: 10}})
	if err == nil || err.Error() != "Invalid dashboard id 10 or group id 9" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestSave_NewAndExisting(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true, OrganisationID: 1})

	saved, err := svc.Save(context.Background(), admin, []Contract{
		{UUID: "gd-1", GroupID: 1, DashboardID: 10},
		{GroupID: 1, DashboardID: 11, PrimaryDashboard: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved, got %d", len(saved))
	}
	if saved[0].ID != 1 {
		t.Errorf("expected uuid match to update row 1, got id %d", saved[0].ID)
	}
	if saved[1].UUID == "" || saved[1].ID == 0 {
		t.Error("expected new row to get uuid and id")
	}
	if repo.rows[1].OrganisationID != 3 {
		t.Errorf("expected acting organisation, got %d", repo.rows[1].OrganisationID)
	}
	if n := repo.count(1, isPrimary); n != 1 {
		t.Errorf("expected one primary, got %d", n)
	}
}

func TestSave_MatchesByID(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 5, UUID: "gd-5", GroupID: 1, DashboardID: 10})

	saved, err := svc.Save(context.Background(), admin, []Contract{{ID: 5, GroupID: 1, DashboardID: 12}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved[0].UUID != "gd-5" || repo.rows[5].DashboardID != 12 {
		t.Errorf("expected row 5 to be updated, got %+v", saved[0])
	}
}

func TestSaveFromBundle_CopiesFlagsWithoutDemotion(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true})

	err := svc.SaveFromBundle(context.Background(), admin, []BundleContract{
		{UUID: "gd-b", GroupUUID: "g-field", DashboardUUID: "d-pnc", PrimaryDashboard: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.rows[1].PrimaryDashboard {
		t.Error("bundle import must not demote")
	}
	imported, _ := repo.GetByUUID(context.Background(), "gd-b")
	if imported == nil || imported.GroupID != 1 || imported.DashboardID != 11 || !imported.PrimaryDashboard {
		t.Errorf("unexpected imported row %+v", imported)
	}

	// Re-importing updates in place.
	err = svc.SaveFromBundle(context.Background(), admin, []BundleContract{
		{UUID: "gd-b", GroupUUID: "g-field", DashboardUUID: "d-pnc"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.rows) != 2 {
		t.Errorf("expected idempotent import, got %d rows", len(repo.rows))
	}
}

func TestSaveFromBundle_UnknownGroup(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SaveFromBundle(context.Background(), admin, []BundleContract{
		{UUID: "gd-b", GroupUUID: "g-missing", DashboardUUID: "d-pnc"},
	})
	if !validation.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDelete_Voids(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10})

	if err := svc.Delete(context.Background(), admin, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.rows[1].Voided {
		t.Error("expected row to be voided")
	}
	list, err := svc.ListByGroup(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestListByGroup_UnknownGroup(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ListByGroup(context.Background(), 42); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHasChangedSince(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, LastModifiedAt: repo.now})

	changed, err := svc.HasChangedSince(context.Background(), repo.now.Add(-time.Minute))
	if err != nil || !changed {
		t.Errorf("expected change, got %v %v", changed, err)
	}
	changed, _ = svc.HasChangedSince(context.Background(), repo.now)
	if changed {
		t.Error("expected no change at the modification instant")
	}
}

func TestDemote(t *testing.T) {
	others := []*GroupDashboard{
		{ID: 1, PrimaryDashboard: true},
		{ID: 2, SecondaryDashboard: true},
		{ID: 3},
	}
	changed := demote(others, true, false)
	if len(changed) != 1 || changed[0].ID != 1 {
		t.Errorf("expected only row 1 changed, got %v", changed)
	}
	if !others[1].SecondaryDashboard {
		t.Error("secondary flag must be kept")
	}
	if len(demote(others, false, false)) != 0 {
		t.Error("expected no changes without promotion")
	}
}
