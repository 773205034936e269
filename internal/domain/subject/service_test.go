package subject

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ombhardwajj/avni-server/internal/domain/observation"
	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/cache"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/query"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

type mockRepo struct {
	subjects     map[string]*Subject
	subjectTypes map[string]*SubjectType
	genders      map[string]*Gender
	typeLookups  int
	nextID       int64

	searchStmt query.Statement
	countStmt  query.Statement
	rows       []map[string]interface{}
	total      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		subjects: make(map[string]*Subject),
		subjectTypes: map[string]*SubjectType{
			"st-person": {ID: 1, UUID: "st-person", Name: "Individual", Type: KindPerson, Active: true},
			"st-hh":     {ID: 2, UUID: "st-hh", Name: "Household", Type: KindHousehold, Active: true},
		},
		genders: map[string]*Gender{"g-female": {ID: 2, UUID: "g-female", Name: "Female"}},
	}
}

func (m *mockRepo) Create(_ context.Context, s *Subject) error {
	m.nextID++
	s.ID = m.nextID
	m.subjects[s.UUID] = s
	return nil
}

func (m *mockRepo) Update(_ context.Context, s *Subject) error {
	if _, ok := m.subjects[s.UUID]; !ok {
		return db.ErrNotFound
	}
	m.subjects[s.UUID] = s
	return nil
}

func (m *mockRepo) GetByUUID(_ context.Context, uuid string) (*Subject, error) {
	s, ok := m.subjects[uuid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) Void(_ context.Context, uuid string, userID int64) error {
	s, ok := m.subjects[uuid]
	if !ok {
		return db.ErrNotFound
	}
	s.Voided = true
	s.LastModifiedByID = userID
	return nil
}

func (m *mockRepo) GetSubjectTypeByUUID(_ context.Context, uuid string) (*SubjectType, error) {
	m.typeLookups++
	st, ok := m.subjectTypes[uuid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return st, nil
}

func (m *mockRepo) GetGenderByUUID(_ context.Context, uuid string) (*Gender, error) {
	g, ok := m.genders[uuid]
	if !ok {
		return nil, db.ErrNotFound
	}
	return g, nil
}

func (m *mockRepo) Search(_ context.Context, stmt query.Statement) ([]map[string]interface{}, error) {
	m.searchStmt = stmt
	return m.rows, nil
}

func (m *mockRepo) Count(_ context.Context, stmt query.Statement) (int64, error) {
	m.countStmt = stmt
	return m.total, nil
}

type conceptNames map[string]string

func (c conceptNames) UUIDForName(_ context.Context, name string) (string, error) {
	if u, ok := c[name]; ok {
		return u, nil
	}
	return "", db.ErrNotFound
}

var testUser = auth.UserContext{
	User:         auth.User{ID: 11, Username: "maya@demo", OrganisationID: 3},
	Organisation: auth.Organisation{ID: 3, Name: "Demo", Status: auth.OrganisationLive},
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	catalog := NewCatalog(repo, cache.NewMemoryKV(), time.Minute)
	obs := observation.NewService(conceptNames{"Weight": "c-weight"})
	return NewService(repo, catalog, obs, db.NopTransactor{}, zerolog.Nop()), repo
}

func TestSearch_RenamesCustomFields(t *testing.T) {
	svc, repo := newTestService()
	repo.total = 1
	repo.rows = []map[string]interface{}{
		{"id": int64(1), "fullName": "Asha Devi", "customField0": "12", "customField1": nil},
	}

	resp, err := svc.Search(context.Background(), testUser, SearchRequest{
		SubjectType:  "st-person",
		CustomFields: []string{"c-weight", "c-height"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.TotalElements)
	require.Len(t, resp.ListOfRecords, 1)
	rec := resp.ListOfRecords[0]
	assert.Equal(t, "12", rec["c-weight"])
	assert.Contains(t, rec, "c-height")
	assert.NotContains(t, rec, "customField0")
	assert.Equal(t, int64(1), repo.countStmt.Params["subjectTypeId"])
	assert.Equal(t, "c-weight", repo.searchStmt.Params["customField0"])
}

func TestSearch_EmptyResultIsEmptyList(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Search(context.Background(), testUser, SearchRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.ListOfRecords)
	assert.Empty(t, resp.ListOfRecords)
}

func TestSearch_UnknownSubjectType(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Search(context.Background(), testUser, SearchRequest{SubjectType: "nope"})
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))
}

func TestSearch_RejectsInvalidPage(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Search(context.Background(), testUser, SearchRequest{
		PageElement: PageElement{NumberOfRecordsOnEachPage: 5000},
	})
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))
}

func TestSearch_SubjectTypeServedFromCache(t *testing.T) {
	svc, repo := newTestService()

	for i := 0; i < 3; i++ {
		_, err := svc.Search(context.Background(), testUser, SearchRequest{SubjectType: "st-hh"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.typeLookups)
}

func TestRegister_Household(t *testing.T) {
	svc, repo := newTestService()

	subj, err := svc.Register(context.Background(), testUser, RegisterRequest{
		SubjectTypeUUID:  "st-hh",
		FirstName:        "Kumar household",
		RegistrationDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Observations:     []observation.Request{{ConceptName: "Weight", Value: 40}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, subj.UUID)
	assert.Equal(t, int64(2), subj.SubjectTypeID)
	assert.Equal(t, int64(3), subj.OrganisationID)
	assert.Equal(t, int64(11), subj.CreatedByID)
	assert.Equal(t, 40, subj.Observations["c-weight"])
	assert.Same(t, subj, repo.subjects[subj.UUID])
}

func TestRegister_PersonNeedsNameDOBAndGender(t *testing.T) {
	svc, _ := newTestService()
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	last := "Devi"

	base := RegisterRequest{
		SubjectTypeUUID:  "st-person",
		FirstName:        "Asha",
		LastName:         &last,
		DateOfBirth:      &dob,
		GenderUUID:       "g-female",
		RegistrationDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	noLast := base
	noLast.LastName = nil
	noDOB := base
	noDOB.DateOfBirth = nil
	noGender := base
	noGender.GenderUUID = ""

	for _, req := range []RegisterRequest{noLast, noDOB, noGender} {
		_, err := svc.Register(context.Background(), testUser, req)
		assert.True(t, validation.IsValidation(err), "expected validation error, got %v", err)
	}

	subj, err := svc.Register(context.Background(), testUser, base)
	require.NoError(t, err)
	require.NotNil(t, subj.GenderID)
	assert.Equal(t, int64(2), *subj.GenderID)
	assert.Equal(t, "Asha Devi", subj.FullName())
}

func TestRegister_UpdatesExistingUUID(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	req := RegisterRequest{
		UUID:             "0b8f6f3e-5d0c-4c1c-9a55-3d1f6f1f2a10",
		SubjectTypeUUID:  "st-hh",
		FirstName:        "Old name",
		RegistrationDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	first, err := svc.Register(ctx, testUser, req)
	require.NoError(t, err)

	req.FirstName = "New name"
	second, err := svc.Register(ctx, testUser, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.subjects, 1)
	assert.Equal(t, "New name", repo.subjects[req.UUID].FirstName)
}

func TestRegister_UnknownConceptName(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), testUser, RegisterRequest{
		SubjectTypeUUID:  "st-hh",
		FirstName:        "Kumar household",
		RegistrationDate: time.Now(),
		Observations:     []observation.Request{{ConceptName: "Height", Value: 1}},
	})
	require.Error(t, err)
	assert.EqualError(t, err, "concept with name=Height not found")
}

func TestVoid(t *testing.T) {
	svc, repo := newTestService()
	repo.subjects["s1"] = &Subject{ID: 1, UUID: "s1"}

	require.NoError(t, svc.Void(context.Background(), testUser, "s1"))
	assert.True(t, repo.subjects["s1"].Voided)
	assert.Equal(t, int64(11), repo.subjects["s1"].LastModifiedByID)

	assert.ErrorIs(t, svc.Void(context.Background(), testUser, "missing"), db.ErrNotFound)
}
