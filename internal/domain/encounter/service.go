// Package encounter records scheduled and completed visits against subjects
// and program enrolments.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ombhardwajj/avni-server/internal/domain/observation"
	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

type Service struct {
	repo   Repository
	obs    *observation.Service
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, obs *observation.Service, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, obs: obs, tx: tx, logger: logger}
}

// SaveRequest is the client form of an encounter. SubjectUUID identifies the
// parent of a KindEncounter, ProgramEnrolmentUUID that of a KindProgramEncounter.
type SaveRequest struct {
	UUID                  string                `json:"uuid,omitempty" validate:"omitempty,uuid"`
	Kind                  Kind                  `json:"kind,omitempty" validate:"omitempty,oneof=Encounter ProgramEncounter"`
	SubjectUUID           string                `json:"subjectUUID,omitempty"`
	ProgramEnrolmentUUID  string                `json:"programEnrolmentUUID,omitempty"`
	EncounterTypeUUID     string                `json:"encounterTypeUUID" validate:"required"`
	Name                  *string               `json:"name,omitempty"`
	EarliestVisitDateTime *time.Time            `json:"earliestVisitDateTime,omitempty"`
	MaxVisitDateTime      *time.Time            `json:"maxVisitDateTime,omitempty"`
	EncounterDateTime     *time.Time            `json:"encounterDateTime,omitempty"`
	CancelDateTime        *time.Time            `json:"cancelDateTime,omitempty"`
	Observations          []observation.Request `json:"observations,omitempty"`
	CancelObservations    []observation.Request `json:"cancelObservations,omitempty"`
	EncounterLocation     *Point                `json:"encounterLocation,omitempty"`
	CancelLocation        *Point                `json:"cancelLocation,omitempty"`
	LegacyID              *string               `json:"legacyId,omitempty"`
	Voided                bool                  `json:"voided,omitempty"`
}

func (r SaveRequest) parentUUID(kind Kind) string {
	if kind == KindProgramEncounter {
		return r.ProgramEnrolmentUUID
	}
	return r.SubjectUUID
}

// Save creates the encounter or updates the one with req.UUID.
func (s *Service) Save(ctx context.Context, uc auth.UserContext, req SaveRequest) (*Encounter, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	parentUUID := req.parentUUID(kind)
	if parentUUID == "" {
		return nil, validation.Errorf("%s requires a parent uuid", kind)
	}

	var out *Encounter
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		et, err := s.repo.GetEncounterTypeByUUID(ctx, req.EncounterTypeUUID)
		if errors.Is(err, db.ErrNotFound) {
			return validation.Errorf("encounter type %s not found", req.EncounterTypeUUID)
		}
		if err != nil {
			return err
		}
		parent, err := s.repo.ResolveParent(ctx, kind, parentUUID)
		if errors.Is(err, db.ErrNotFound) {
			return validation.Errorf("%s parent %s not found", kind, parentUUID)
		}
		if err != nil {
			return err
		}

		e := &Encounter{Kind: kind, UUID: req.UUID}
		if req.UUID != "" {
			existing, err := s.repo.GetByUUID(ctx, kind, req.UUID)
			switch {
			case err == nil:
				e = existing
			case !errors.Is(err, db.ErrNotFound):
				return err
			}
		} else {
			e.UUID = uuid.NewString()
		}
		if e.ID == 0 && !et.IsActive() {
			return validation.Errorf("encounter type %s is not active", et.Name)
		}

		obs, err := s.obs.CreateObservations(ctx, req.Observations)
		if err != nil {
			return err
		}
		cancelObs, err := s.obs.CreateObservations(ctx, req.CancelObservations)
		if err != nil {
			return err
		}

		e.setParentID(parent.ID)
		e.AddressID = parent.AddressID
		e.EncounterTypeID = et.ID
		e.EncounterType = et
		e.Name = req.Name
		e.EarliestVisitDateTime = req.EarliestVisitDateTime
		e.MaxVisitDateTime = req.MaxVisitDateTime
		e.SetEncounterDateTime(req.EncounterDateTime, uc.User)
		e.CancelDateTime = req.CancelDateTime
		e.Observations = obs
		e.CancelObservations = cancelObs
		e.EncounterLocation = req.EncounterLocation
		e.CancelLocation = req.CancelLocation
		e.LegacyID = req.LegacyID
		e.Voided = req.Voided
		e.LastModifiedByID = uc.User.ID

		if err := e.Validate(); err != nil {
			return err
		}

		if e.ID == 0 {
			e.OrganisationID = uc.OrganisationID()
			e.CreatedByID = uc.User.ID
			if err := s.repo.Create(ctx, e); err != nil {
				return fmt.Errorf("create %s: %w", kind, err)
			}
		} else if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s %s: %w", kind, e.UUID, err)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type CancelRequest struct {
	CancelDateTime     time.Time             `json:"cancelDateTime" validate:"required"`
	CancelObservations []observation.Request `json:"cancelObservations,omitempty"`
	CancelLocation     *Point                `json:"cancelLocation,omitempty"`
}

// Cancel stamps the cancellation of an encounter. Completion is left as is.
func (s *Service) Cancel(ctx context.Context, uc auth.UserContext, kind Kind, uuid string, req CancelRequest) (*Encounter, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out *Encounter
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetByUUID(ctx, kind, uuid)
		if err != nil {
			return err
		}
		obs, err := s.obs.CreateObservations(ctx, req.CancelObservations)
		if err != nil {
			return err
		}
		t := req.CancelDateTime
		e.CancelDateTime = &t
		e.CancelObservations = obs
		e.CancelLocation = req.CancelLocation
		e.LastModifiedByID = uc.User.ID
		if err := e.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("cancel %s %s: %w", kind, uuid, err)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("kind", string(kind)).Str("uuid", uuid).Msg("encounter cancelled")
	return out, nil
}

// Get returns the encounter with its type loaded.
func (s *Service) Get(ctx context.Context, kind Kind, uuid string) (*Encounter, error) {
	e, err := s.repo.GetByUUID(ctx, kind, uuid)
	if err != nil {
		return nil, err
	}
	et, err := s.repo.GetEncounterTypeByID(ctx, e.EncounterTypeID)
	if err != nil {
		return nil, fmt.Errorf("load encounter type %d: %w", e.EncounterTypeID, err)
	}
	e.EncounterType = et
	return e, nil
}

func (s *Service) SubjectID(ctx context.Context, subjectUUID string) (int64, error) {
	return s.repo.SubjectID(ctx, subjectUUID)
}

func (s *Service) ListBySubject(ctx context.Context, kind Kind, subjectID int64, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListBySubject(ctx, kind, subjectID, limit, offset)
}

func (s *Service) Void(ctx context.Context, uc auth.UserContext, kind Kind, uuid string) error {
	return s.repo.Void(ctx, kind, uuid, uc.User.ID)
}

// CompletedOrCancelledBetween returns the subject's encounters completed or
// cancelled within [start, end].
func (s *Service) CompletedOrCancelledBetween(ctx context.Context, kind Kind, subjectID int64, start, end time.Time) ([]*Encounter, error) {
	if end.Before(start) {
		return nil, validation.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	all, err := s.repo.ListAllBySubject(ctx, kind, subjectID)
	if err != nil {
		return nil, err
	}
	out := make([]*Encounter, 0, len(all))
	for _, e := range all {
		if e.IsEncounteredOrCancelledBetween(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}
