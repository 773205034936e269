// Package concept maintains the concept dictionary: the questions and coded
// answers that observations are recorded against.
package concept

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

// ErrAnswerConceptNotFound marks a coded concept whose answer concept does
// not exist yet. SaveOrUpdateConcepts defers such items to its retry pass.
var ErrAnswerConceptNotFound = errors.New("answer concept not found")

// OrganisationLookup resolves an organisation uuid, failing with
// db.ErrUnresolvedReference when it does not exist.
type OrganisationLookup interface {
	ByUUID(ctx context.Context, uuid string) (*auth.Organisation, error)
}

type Service struct {
	repo   Repository
	orgs   OrganisationLookup
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, orgs OrganisationLookup, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, orgs: orgs, tx: tx, logger: logger}
}

// SaveOrUpdateConcepts upserts the batch in one transaction. Items whose
// answer concepts are missing are deferred; in the retry pass each deferred
// item first re-saves the deferred siblings it uses as answers. An answer
// still missing after that pass fails the batch.
func (s *Service) SaveOrUpdateConcepts(ctx context.Context, uc auth.UserContext, contracts []Contract) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		var deferred []Contract
		for _, c := range contracts {
			_, err := s.saveOrUpdate(ctx, uc, c)
			if errors.Is(err, ErrAnswerConceptNotFound) {
				s.logger.Debug().Str("concept", c.UUID).Err(err).Msg("deferring concept")
				deferred = append(deferred, c)
				continue
			}
			if err != nil {
				return err
			}
		}

		for _, c := range deferred {
			for _, a := range c.Answers {
				if sibling, ok := findContract(deferred, a.UUID); ok {
					if _, err := s.saveOrUpdate(ctx, uc, sibling); err != nil {
						return retryFailure(err)
					}
				}
			}
			if _, err := s.saveOrUpdate(ctx, uc, c); err != nil {
				return retryFailure(err)
			}
		}
		if len(deferred) > 0 {
			s.logger.Info().Int("deferred", len(deferred)).Int("total", len(contracts)).Msg("concept batch resolved forward references")
		}
		return nil
	})
}

func findContract(contracts []Contract, uuid string) (Contract, bool) {
	for _, c := range contracts {
		if c.UUID == uuid {
			return c, true
		}
	}
	return Contract{}, false
}

func retryFailure(err error) error {
	if errors.Is(err, ErrAnswerConceptNotFound) {
		return validation.Wrap(err)
	}
	return err
}

func (s *Service) saveOrUpdate(ctx context.Context, uc auth.UserContext, req Contract) (*Concept, error) {
	if req.UUID == "" {
		return nil, validation.Errorf("concept uuid is required")
	}
	if req.Name != "" {
		byName, err := s.repo.GetByName(ctx, req.Name)
		switch {
		case err == nil && byName.UUID != req.UUID:
			return nil, validation.Errorf("Concept %s exists with different uuid", req.Name)
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return nil, err
		}
	}

	c, err := s.repo.GetByUUID(ctx, req.UUID)
	if errors.Is(err, db.ErrNotFound) {
		c, err = &Concept{UUID: req.UUID}, nil
	}
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		c.Name = req.Name
	}
	if c.Name == "" {
		return nil, validation.Errorf("concept %s has no name", req.UUID)
	}
	dataType, err := impliedDataType(req, c)
	if err != nil {
		return nil, err
	}
	c.DataType = dataType
	c.Voided = req.Voided
	c.KeyValues = req.KeyValues

	org, err := s.organisation(ctx, req.OrganisationUUID)
	if err != nil {
		return nil, err
	}
	switch {
	case org != nil:
		c.OrganisationID = org.ID
	case c.IsNew():
		c.OrganisationID = uc.OrganisationID()
	}

	switch c.DataType {
	case DataCoded:
		if err := s.mapAnswers(ctx, uc, c, req.Answers); err != nil {
			return nil, err
		}
	case DataNumeric:
		c.LowAbsolute = req.LowAbsolute
		c.HighAbsolute = req.HighAbsolute
		c.LowNormal = req.LowNormal
		c.HighNormal = req.HighNormal
		c.Unit = req.Unit
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save concept %s: %w", c.UUID, err)
	}
	return c, nil
}

func impliedDataType(req Contract, c *Concept) (DataType, error) {
	if req.DataType == "" {
		if c.IsNew() {
			return DataNA, nil
		}
		return c.DataType, nil
	}
	if !req.DataType.Valid() {
		return "", validation.Errorf("unknown data type %s for concept %s", req.DataType, req.UUID)
	}
	return req.DataType, nil
}

// organisation resolves an optional organisation reference. A reference
// that does not resolve is fatal for the request.
func (s *Service) organisation(ctx context.Context, ref *string) (*auth.Organisation, error) {
	if ref == nil || *ref == "" {
		return nil, nil
	}
	return s.orgs.ByUUID(ctx, *ref)
}

// mapAnswers resolves every answer before touching c, so a missing answer
// concept leaves the concept unchanged.
func (s *Service) mapAnswers(ctx context.Context, uc auth.UserContext, c *Concept, reqs []Contract) error {
	answers := make([]*Answer, 0, len(reqs))
	for i, ar := range reqs {
		if ar.UUID == "" {
			return validation.Errorf("UUID missing for answer")
		}
		answerConcept, err := s.repo.GetByUUID(ctx, ar.UUID)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w for UUID:%s", ErrAnswerConceptNotFound, ar.UUID)
		}
		if err != nil {
			return err
		}

		a := c.FindAnswer(ar.UUID)
		isNew := a == nil
		if isNew {
			a = &Answer{UUID: uuid.NewString(), AnswerConceptUUID: ar.UUID, OrganisationID: c.OrganisationID}
		} else {
			cp := *a
			a = &cp
		}
		org, err := s.organisation(ctx, ar.OrganisationUUID)
		if err != nil {
			return err
		}
		if org != nil {
			a.OrganisationID = org.ID
		}
		if isNew || a.EditableBy(uc.OrganisationID()) {
			a.AnswerConceptID = answerConcept.ID
			a.AnswerConceptName = answerConcept.Name
			a.Voided = ar.Voided
			a.Order = float64(i + 1)
			if ar.Order != nil {
				a.Order = *ar.Order
			}
			a.Abnormal = ar.Abnormal
			a.Unique = ar.Unique
		}
		answers = append(answers, a)
	}

	for _, a := range answers {
		if existing := c.FindAnswer(a.AnswerConceptUUID); existing != nil {
			*existing = *a
		}
	}
	c.AddAll(answers)
	return nil
}

func (s *Service) Get(ctx context.Context, uuid string) (*Concept, error) {
	return s.repo.GetByUUID(ctx, uuid)
}

func (s *Service) GetAnswer(ctx context.Context, conceptUUID, answerConceptUUID string) (*Answer, error) {
	return s.repo.GetAnswer(ctx, conceptUUID, answerConceptUUID)
}

// UUIDForName implements observation.ConceptResolver.
func (s *Service) UUIDForName(ctx context.Context, name string) (string, error) {
	c, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return c.UUID, nil
}
