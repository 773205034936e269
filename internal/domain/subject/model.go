package subject

import (
	"strings"
	"time"

	"github.com/ombhardwajj/avni-server/internal/domain/observation"
)

// Kind is the closed set of subject type variants.
type Kind string

const (
	KindIndividual Kind = "Individual"
	KindPerson     Kind = "Person"
	KindHousehold  Kind = "Household"
	KindGroup      Kind = "Group"
	KindUser       Kind = "User"
)

func (k Kind) Valid() bool {
	switch k {
	case KindIndividual, KindPerson, KindHousehold, KindGroup, KindUser:
		return true
	}
	return false
}

// HasPersonName reports whether subjects of this kind carry first, middle
// and last names and a date of birth rather than a single name.
func (k Kind) HasPersonName() bool {
	return k == KindPerson || k == KindUser
}

type SubjectType struct {
	ID             int64  `db:"id" json:"id"`
	UUID           string `db:"uuid" json:"uuid"`
	Name           string `db:"name" json:"name"`
	Type           Kind   `db:"type" json:"type"`
	Active         bool   `db:"active" json:"active"`
	Voided         bool   `db:"is_voided" json:"voided"`
	OrganisationID int64  `db:"organisation_id" json:"organisationId"`
}

type Gender struct {
	ID   int64  `db:"id" json:"id"`
	UUID string `db:"uuid" json:"uuid"`
	Name string `db:"name" json:"name"`
}

// Subject is a registered individual, household or group.
type Subject struct {
	ID               int64                  `db:"id" json:"id"`
	UUID             string                 `db:"uuid" json:"uuid"`
	FirstName        string                 `db:"first_name" json:"firstName"`
	MiddleName       *string                `db:"middle_name" json:"middleName,omitempty"`
	LastName         *string                `db:"last_name" json:"lastName,omitempty"`
	ProfilePicture   *string                `db:"profile_picture" json:"profilePicture,omitempty"`
	DateOfBirth      *time.Time             `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	GenderID         *int64                 `db:"gender_id" json:"genderId,omitempty"`
	AddressID        *int64                 `db:"address_id" json:"addressId,omitempty"`
	SubjectTypeID    int64                  `db:"subject_type_id" json:"subjectTypeId"`
	RegistrationDate time.Time              `db:"registration_date" json:"registrationDate"`
	Observations     observation.Collection `db:"observations" json:"observations"`
	LegacyID         *string                `db:"legacy_id" json:"legacyId,omitempty"`
	OrganisationID   int64                  `db:"organisation_id" json:"organisationId"`
	Voided           bool                   `db:"is_voided" json:"voided"`
	CreatedByID      int64                  `db:"created_by_id" json:"createdById"`
	LastModifiedByID int64                  `db:"last_modified_by_id" json:"lastModifiedById"`
	CreatedAt        time.Time              `db:"created_date_time" json:"createdDateTime"`
	LastModifiedAt   time.Time              `db:"last_modified_date_time" json:"lastModifiedDateTime"`
}

func (s *Subject) FullName() string {
	parts := []string{s.FirstName}
	if s.MiddleName != nil && *s.MiddleName != "" {
		parts = append(parts, *s.MiddleName)
	}
	if s.LastName != nil && *s.LastName != "" {
		parts = append(parts, *s.LastName)
	}
	return strings.Join(parts, " ")
}
