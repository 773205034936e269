package subject

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/query"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const subjectCols = `id, uuid, first_name, middle_name, last_name, profile_picture, date_of_birth,
	gender_id, address_id, subject_type_id, registration_date, observations, legacy_id,
	organisation_id, is_voided, created_by_id, last_modified_by_id,
	created_date_time, last_modified_date_time`

func (r *repoPG) Create(ctx context.Context, s *Subject) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO individual (
			uuid, first_name, middle_name, last_name, profile_picture, date_of_birth,
			gender_id, address_id, subject_type_id, registration_date, observations, legacy_id,
			organisation_id, is_voided, created_by_id, last_modified_by_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
		RETURNING id, created_date_time, last_modified_date_time`,
		s.UUID, s.FirstName, s.MiddleName, s.LastName, s.ProfilePicture, s.DateOfBirth,
		s.GenderID, s.AddressID, s.SubjectTypeID, s.RegistrationDate, s.Observations, s.LegacyID,
		s.OrganisationID, s.Voided, s.CreatedByID,
	).Scan(&s.ID, &s.CreatedAt, &s.LastModifiedAt)
}

func (r *repoPG) Update(ctx context.Context, s *Subject) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE individual SET
			first_name=$2, middle_name=$3, last_name=$4, profile_picture=$5, date_of_birth=$6,
			gender_id=$7, address_id=$8, subject_type_id=$9, registration_date=$10,
			observations=$11, legacy_id=$12, is_voided=$13, last_modified_by_id=$14,
			last_modified_date_time=NOW()
		WHERE id = $1`,
		s.ID, s.FirstName, s.MiddleName, s.LastName, s.ProfilePicture, s.DateOfBirth,
		s.GenderID, s.AddressID, s.SubjectTypeID, s.RegistrationDate,
		s.Observations, s.LegacyID, s.Voided, s.LastModifiedByID,
	)
	if err == nil && tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return err
}

func (r *repoPG) GetByUUID(ctx context.Context, uuid string) (*Subject, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+subjectCols+` FROM individual WHERE uuid = $1`, uuid)
	if err != nil {
		return nil, err
	}
	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Subject])
	if err != nil {
		return nil, db.NotFound(err)
	}
	return s, nil
}

func (r *repoPG) Void(ctx context.Context, uuid string, userID int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE individual SET is_voided = TRUE, last_modified_by_id = $2, last_modified_date_time = NOW()
		WHERE uuid = $1`, uuid, userID)
	if err == nil && tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return err
}

func (r *repoPG) GetSubjectTypeByUUID(ctx context.Context, uuid string) (*SubjectType, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, uuid, name, type, active, is_voided, organisation_id
		FROM subject_type WHERE uuid = $1`, uuid)
	if err != nil {
		return nil, err
	}
	st, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[SubjectType])
	if err != nil {
		return nil, db.NotFound(err)
	}
	return st, nil
}

func (r *repoPG) GetGenderByUUID(ctx context.Context, uuid string) (*Gender, error) {
	var g Gender
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM gender WHERE uuid = $1`, uuid).
		Scan(&g.ID, &g.UUID, &g.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &g, nil
}

func (r *repoPG) Search(ctx context.Context, stmt query.Statement) ([]map[string]interface{}, error) {
	rows, err := r.conn(ctx).Query(ctx, stmt.SQL, stmt.NamedArgs())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

func (r *repoPG) Count(ctx context.Context, stmt query.Statement) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx, stmt.SQL, stmt.NamedArgs()).Scan(&n)
	return n, err
}
