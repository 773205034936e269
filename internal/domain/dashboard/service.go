// Package dashboard assigns dashboards to permission groups.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

type Service struct {
	repo   Repository
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger}
}

// Save upserts each contract, matched by uuid and then by id, and demotes
// the group's other rows the same way Edit does.
func (s *Service) Save(ctx context.Context, uc auth.UserContext, contracts []Contract) ([]*GroupDashboard, error) {
	for i := range contracts {
		if err := validation.Struct(&contracts[i]); err != nil {
			return nil, err
		}
	}
	saved := make([]*GroupDashboard, 0, len(contracts))
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, c := range contracts {
			gd, err := s.newOrExisting(ctx, c)
			if err != nil {
				return err
			}
			if err := s.buildAndSave(ctx, uc, gd, c); err != nil {
				return err
			}
			saved = append(saved, gd)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) newOrExisting(ctx context.Context, c Contract) (*GroupDashboard, error) {
	if c.UUID != "" {
		gd, err := s.repo.GetByUUID(ctx, c.UUID)
		if err == nil {
			return gd, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	if c.ID != 0 {
		gd, err := s.repo.GetByID(ctx, c.ID)
		if err == nil {
			return gd, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
	}
	id := c.UUID
	if id == "" {
		id = uuid.New().String()
	}
	return &GroupDashboard{UUID: id}, nil
}

// Edit updates the row with the given id and demotes the group's previous
// primary or secondary dashboard.
func (s *Service) Edit(ctx context.Context, uc auth.UserContext, id int64, c Contract) (*GroupDashboard, error) {
	if err := validation.Struct(&c); err != nil {
		return nil, err
	}
	var gd *GroupDashboard
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		gd, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return s.buildAndSave(ctx, uc, gd, c)
	})
	if err != nil {
		return nil, err
	}
	return gd, nil
}

func (s *Service) buildAndSave(ctx context.Context, uc auth.UserContext, gd *GroupDashboard, c Contract) error {
	if err := s.resolve(ctx, c.GroupID, c.DashboardID); err != nil {
		return err
	}
	gd.GroupID = c.GroupID
	gd.DashboardID = c.DashboardID
	gd.PrimaryDashboard = c.PrimaryDashboard
	gd.SecondaryDashboard = c.SecondaryDashboard
	gd.OrganisationID = uc.OrganisationID()
	gd.LastModifiedByID = uc.User.ID
	if err := s.repo.Save(ctx, gd); err != nil {
		return err
	}

	if !gd.PrimaryDashboard && !gd.SecondaryDashboard {
		return nil
	}
	others, err := s.repo.OthersInGroup(ctx, gd.GroupID, gd.ID)
	if err != nil {
		return err
	}
	for _, o := range demote(others, gd.PrimaryDashboard, gd.SecondaryDashboard) {
		o.LastModifiedByID = uc.User.ID
		if err := s.repo.Save(ctx, o); err != nil {
			return err
		}
		s.logger.Info().
			Int64("group_id", gd.GroupID).
			Int64("demoted", o.ID).
			Int64("promoted", gd.ID).
			Msg("group dashboard demoted")
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, groupID, dashboardID int64) error {
	_, gerr := s.repo.LockGroup(ctx, groupID)
	_, derr := s.repo.GetDashboard(ctx, dashboardID)
	for _, err := range []error{gerr, derr} {
		if errors.Is(err, db.ErrNotFound) {
			return validation.Errorf("Invalid dashboard id %d or group id %d", dashboardID, groupID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveFromBundle imports exported rows keyed by uuid. Flags are taken as
// exported; the bundle already holds a consistent group.
func (s *Service) SaveFromBundle(ctx context.Context, uc auth.UserContext, contracts []BundleContract) error {
	for i := range contracts {
		if err := validation.Struct(&contracts[i]); err != nil {
			return err
		}
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		for _, c := range contracts {
			gd, err := s.repo.GetByUUID(ctx, c.UUID)
			if errors.Is(err, db.ErrNotFound) {
				gd, err = &GroupDashboard{UUID: c.UUID}, nil
			}
			if err != nil {
				return err
			}

			group, gerr := s.repo.GetGroupByUUID(ctx, c.GroupUUID)
			dash, derr := s.repo.GetDashboardByUUID(ctx, c.DashboardUUID)
			if errors.Is(gerr, db.ErrNotFound) || errors.Is(derr, db.ErrNotFound) {
				return validation.Errorf("Invalid dashboard uuid %s or group uuid %s", c.DashboardUUID, c.GroupUUID)
			}
			if gerr != nil {
				return gerr
			}
			if derr != nil {
				return derr
			}

			gd.GroupID = group.ID
			gd.DashboardID = dash.ID
			gd.PrimaryDashboard = c.PrimaryDashboard
			gd.SecondaryDashboard = c.SecondaryDashboard
			gd.Voided = c.Voided
			gd.OrganisationID = uc.OrganisationID()
			gd.LastModifiedByID = uc.User.ID
			if err := s.repo.Save(ctx, gd); err != nil {
				return err
			}
		}
		s.logger.Debug().Int("count", len(contracts)).Msg("group dashboards imported")
		return nil
	})
}

// Delete voids the row.
func (s *Service) Delete(ctx context.Context, uc auth.UserContext, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		gd, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		gd.Voided = true
		gd.LastModifiedByID = uc.User.ID
		return s.repo.Save(ctx, gd)
	})
}

func (s *Service) ListByGroup(ctx context.Context, groupID int64) ([]*GroupDashboard, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*GroupDashboard{}
	}
	return out, nil
}

// HasChangedSince reports whether any row was modified after t.
func (s *Service) HasChangedSince(ctx context.Context, t time.Time) (bool, error) {
	return s.repo.ExistsModifiedAfter(ctx, t)
}
