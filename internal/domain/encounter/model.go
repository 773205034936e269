package encounter

import (
	"errors"
	"fmt"
	"time"

	"github.com/ombhardwajj/avni-server/internal/domain/observation"
	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

// Kind selects the encounter variant. Both variants share one structure and
// differ only in their table and parent.
type Kind string

const (
	KindEncounter        Kind = "Encounter"
	KindProgramEncounter Kind = "ProgramEncounter"
)

// ParseKind maps an empty string to KindEncounter.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindEncounter:
		return KindEncounter, nil
	case KindProgramEncounter:
		return KindProgramEncounter, nil
	}
	return "", validation.Errorf("unknown encounter kind %q", s)
}

func (k Kind) Table() string {
	if k == KindProgramEncounter {
		return "program_encounter"
	}
	return "encounter"
}

func (k Kind) parentColumn() string {
	if k == KindProgramEncounter {
		return "program_enrolment_id"
	}
	return "individual_id"
}

type EncounterType struct {
	ID                            int64   `json:"id"`
	UUID                          string  `json:"uuid"`
	Name                          string  `json:"name"`
	ConceptID                     *int64  `json:"conceptId,omitempty"`
	EncounterEligibilityCheckRule *string `json:"encounterEligibilityCheckRule,omitempty"`
	Active                        *bool   `json:"active,omitempty"`
	Immutable                     bool    `json:"immutable"`
	Voided                        bool    `json:"voided"`
	OrganisationID                int64   `json:"organisationId"`
}

// IsActive treats an unset flag as active.
func (t *EncounterType) IsActive() bool {
	return t.Active == nil || *t.Active
}

// Point is a recorded geolocation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Encounter is a scheduled or recorded visit. SubjectID is set for
// KindEncounter and ProgramEnrolmentID for KindProgramEncounter.
type Encounter struct {
	ID                    int64                  `json:"id"`
	UUID                  string                 `json:"uuid"`
	Kind                  Kind                   `json:"kind"`
	SubjectID             *int64                 `json:"subjectId,omitempty"`
	ProgramEnrolmentID    *int64                 `json:"programEnrolmentId,omitempty"`
	EncounterTypeID       int64                  `json:"encounterTypeId"`
	EncounterType         *EncounterType         `json:"-"`
	Name                  *string                `json:"name,omitempty"`
	EarliestVisitDateTime *time.Time             `json:"earliestVisitDateTime,omitempty"`
	MaxVisitDateTime      *time.Time             `json:"maxVisitDateTime,omitempty"`
	EncounterDateTime     *time.Time             `json:"encounterDateTime,omitempty"`
	CancelDateTime        *time.Time             `json:"cancelDateTime,omitempty"`
	Observations          observation.Collection `json:"observations"`
	CancelObservations    observation.Collection `json:"cancelObservations"`
	EncounterLocation     *Point                 `json:"encounterLocation,omitempty"`
	CancelLocation        *Point                 `json:"cancelLocation,omitempty"`
	LegacyID              *string                `json:"legacyId,omitempty"`
	AddressID             *int64                 `json:"-"`
	FilledByID            *int64                 `json:"-"`
	OrganisationID        int64                  `json:"organisationId"`
	Voided                bool                   `json:"voided"`
	CreatedByID           int64                  `json:"createdById"`
	LastModifiedByID      int64                  `json:"lastModifiedById"`
	CreatedAt             time.Time              `json:"createdDateTime"`
	LastModifiedAt        time.Time              `json:"lastModifiedDateTime"`
}

// ParentID is the subject or program enrolment the encounter belongs to.
func (e *Encounter) ParentID() *int64 {
	if e.Kind == KindProgramEncounter {
		return e.ProgramEnrolmentID
	}
	return e.SubjectID
}

func (e *Encounter) setParentID(id int64) {
	if e.Kind == KindProgramEncounter {
		e.ProgramEnrolmentID = &id
		return
	}
	e.SubjectID = &id
}

// SetEncounterDateTime records t. The first transition from unset to set
// attributes the encounter to user; later changes keep that attribution.
func (e *Encounter) SetEncounterDateTime(t *time.Time, user auth.User) {
	if e.EncounterDateTime == nil && t != nil {
		id := user.ID
		e.FilledByID = &id
	}
	e.EncounterDateTime = t
}

func (e *Encounter) Validate() error {
	if e.EncounterDateTime == nil && e.EarliestVisitDateTime == nil {
		return validation.Errorf("Both encounter datetime and earliest visit datetime cannot be null")
	}
	return nil
}

func (e *Encounter) IsCompleted() bool { return e.EncounterDateTime != nil }

// IsCancelled is independent of IsCompleted; a completed visit may later be cancelled.
func (e *Encounter) IsCancelled() bool { return e.CancelDateTime != nil }

var ErrVisitWindowUnset = errors.New("visit window is not set")

// DateFallsWithin reports whether t lies strictly between the earliest and
// max visit datetimes.
func (e *Encounter) DateFallsWithin(t time.Time) (bool, error) {
	if e.EarliestVisitDateTime == nil || e.MaxVisitDateTime == nil {
		return false, fmt.Errorf("encounter %s: %w", e.UUID, ErrVisitWindowUnset)
	}
	return t.After(*e.EarliestVisitDateTime) && t.Before(*e.MaxVisitDateTime), nil
}

// IsEncounteredOrCancelledBetween checks whichever of the encounter and
// cancel datetimes are present against the inclusive range [start, end].
func (e *Encounter) IsEncounteredOrCancelledBetween(start, end time.Time) bool {
	return within(e.EncounterDateTime, start, end) || within(e.CancelDateTime, start, end)
}

func within(t *time.Time, start, end time.Time) bool {
	return t != nil && !t.Before(start) && !t.After(end)
}

// Matches compares the encounter type name and the encounter name. An
// encounter with no loaded type never matches.
func (e *Encounter) Matches(encounterTypeName, name string) bool {
	if e.EncounterType == nil || e.EncounterType.Name != encounterTypeName {
		return false
	}
	if e.Name == nil {
		return name == ""
	}
	return *e.Name == name
}
