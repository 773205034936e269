package encounter

import (
	"context"
)

// Parent is the row an encounter hangs off: a subject for KindEncounter, a
// program enrolment for KindProgramEncounter.
type Parent struct {
	ID        int64
	AddressID *int64
}

type Repository interface {
	Create(ctx context.Context, e *Encounter) error
	Update(ctx context.Context, e *Encounter) error
	GetByUUID(ctx context.Context, kind Kind, uuid string) (*Encounter, error)
	Void(ctx context.Context, kind Kind, uuid string, userID int64) error

	// ListBySubject pages the non-voided encounters of a subject, newest first.
	ListBySubject(ctx context.Context, kind Kind, subjectID int64, limit, offset int) ([]*Encounter, int, error)
	ListAllBySubject(ctx context.Context, kind Kind, subjectID int64) ([]*Encounter, error)

	ResolveParent(ctx context.Context, kind Kind, uuid string) (*Parent, error)
	SubjectID(ctx context.Context, subjectUUID string) (int64, error)

	GetEncounterTypeByUUID(ctx context.Context, uuid string) (*EncounterType, error)
	GetEncounterTypeByID(ctx context.Context, id int64) (*EncounterType, error)
}
