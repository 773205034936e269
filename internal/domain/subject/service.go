// Package subject registers subjects and searches them with filters over
// registration, encounter and enrolment data.
package subject

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
	repo    Repository
	catalog *Catalog
	obs     *observation.Service
	tx      db.Transactor
	logger  zerolog.Logger
}

func NewService(repo Repository, catalog *Catalog, obs *observation.Service, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, obs: obs, tx: tx, logger: logger}
}

// Search runs the count and page queries for req.
func (s *Service) Search(ctx context.Context, uc auth.UserContext, req SearchRequest) (*SearchResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var st *SubjectType
	if req.SubjectType != "" {
		found, err := s.catalog.SubjectType(ctx, uc.OrganisationID(), req.SubjectType)
		if errors.Is(err, db.ErrNotFound) {
			return nil, validation.Errorf("subject type %s not found", req.SubjectType)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve subject type: %w", err)
		}
		st = found
	}

	countStmt, err := CountQuery(req, st)
	if err != nil {
		return nil, err
	}
	resultStmt, err := ResultQuery(req, st)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, countStmt)
	if err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}
	rows, err := s.repo.Search(ctx, resultStmt)
	if err != nil {
		return nil, fmt.Errorf("search subjects: %w", err)
	}

	for _, row := range rows {
		for n, conceptUUID := range req.CustomFields {
			alias := CustomFieldAlias(n)
			row[conceptUUID] = row[alias]
			delete(row, alias)
		}
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}

	s.logger.Debug().Int64("total", total).Int("page", req.PageElement.PageNumber).Msg("subject search")
	return &SearchResponse{TotalElements: total, ListOfRecords: rows}, nil
}

type RegisterRequest struct {
	UUID             string                `json:"uuid,omitempty" validate:"omitempty,uuid"`
	SubjectTypeUUID  string                `json:"subjectTypeUUID" validate:"required"`
	FirstName        string                `json:"firstName" validate:"required"`
	MiddleName       *string               `json:"middleName,omitempty"`
	LastName         *string               `json:"lastName,omitempty"`
	ProfilePicture   *string               `json:"profilePicture,omitempty"`
	DateOfBirth      *time.Time            `json:"dateOfBirth,omitempty"`
	GenderUUID       string                `json:"genderUUID,omitempty"`
	AddressID        *int64                `json:"addressId,omitempty"`
	RegistrationDate time.Time             `json:"registrationDate" validate:"required"`
	Observations     []observation.Request `json:"observations,omitempty"`
	LegacyID         *string               `json:"legacyId,omitempty"`
	Voided           bool                  `json:"voided,omitempty"`
}

// Register creates the subject, or updates it when req.UUID already exists.
func (s *Service) Register(ctx context.Context, uc auth.UserContext, req RegisterRequest) (*Subject, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	st, err := s.catalog.SubjectType(ctx, uc.OrganisationID(), req.SubjectTypeUUID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, validation.Errorf("subject type %s not found", req.SubjectTypeUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve subject type: %w", err)
	}
	if st.Type.HasPersonName() {
		if req.LastName == nil || *req.LastName == "" {
			return nil, validation.Errorf("lastName is required for %s subjects", st.Name)
		}
		if req.DateOfBirth == nil {
			return nil, validation.Errorf("dateOfBirth is required for %s subjects", st.Name)
		}
		if req.GenderUUID == "" {
			return nil, validation.Errorf("gender is required for %s subjects", st.Name)
		}
	}

	var out *Subject
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		var genderID *int64
		if req.GenderUUID != "" {
			g, err := s.repo.GetGenderByUUID(ctx, req.GenderUUID)
			if errors.Is(err, db.ErrNotFound) {
				return validation.Errorf("gender %s not found", req.GenderUUID)
			}
			if err != nil {
				return err
			}
			genderID = &g.ID
		}

		obs, err := s.obs.CreateObservations(ctx, req.Observations)
		if err != nil {
			return err
		}

		subj := &Subject{UUID: req.UUID}
		if subj.UUID != "" {
			existing, err := s.repo.GetByUUID(ctx, req.UUID)
			switch {
			case err == nil:
				subj = existing
			case !errors.Is(err, db.ErrNotFound):
				return err
			}
		} else {
			subj.UUID = uuid.NewString()
		}

		subj.FirstName = req.FirstName
		subj.MiddleName = req.MiddleName
		subj.LastName = req.LastName
		subj.ProfilePicture = req.ProfilePicture
		subj.DateOfBirth = req.DateOfBirth
		subj.GenderID = genderID
		subj.AddressID = req.AddressID
		subj.SubjectTypeID = st.ID
		subj.RegistrationDate = req.RegistrationDate
		subj.Observations = obs
		subj.LegacyID = req.LegacyID
		subj.Voided = req.Voided
		subj.LastModifiedByID = uc.User.ID

		if subj.ID == 0 {
			subj.OrganisationID = uc.OrganisationID()
			subj.CreatedByID = uc.User.ID
			if err := s.repo.Create(ctx, subj); err != nil {
				return fmt.Errorf("create subject: %w", err)
			}
		} else if err := s.repo.Update(ctx, subj); err != nil {
			return fmt.Errorf("update subject %s: %w", subj.UUID, err)
		}
		out = subj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, uuid string) (*Subject, error) {
	return s.repo.GetByUUID(ctx, uuid)
}

func (s *Service) Void(ctx context.Context, uc auth.UserContext, uuid string) error {
	return s.repo.Void(ctx, uuid, uc.User.ID)
}
