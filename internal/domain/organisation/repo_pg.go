package organisation

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
	"github.com/ombhardwajj/avni-server/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
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

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const orgCols = `id, uuid, name, db_user, schema_name, status`

func (r *repoPG) GetByID(ctx context.Context, id int64) (*auth.Organisation, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organisation WHERE id = $1 AND is_voided IS FALSE`, id))
}

func (r *repoPG) GetByUUID(ctx context.Context, uuid string) (*auth.Organisation, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organisation WHERE uuid = $1 AND is_voided IS FALSE`, uuid))
}

func scanOrg(row pgx.Row) (*auth.Organisation, error) {
	var o auth.Organisation
	var status string
	if err := row.Scan(&o.ID, &o.UUID, &o.Name, &o.DBUser, &o.SchemaName, &status); err != nil {
		return nil, db.NotFound(err)
	}
	o.Status = auth.OrganisationStatus(status)
	return &o, nil
}

// GetUserByUsername matches case-insensitively; logins are stored as typed.
func (r *repoPG) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	var u auth.User
	var orgID *int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, uuid, username, organisation_id, is_org_admin, is_admin
		FROM users
		WHERE lower(username) = $1 AND is_voided IS FALSE`,
		strings.ToLower(username),
	).Scan(&u.ID, &u.UUID, &u.Username, &orgID, &u.OrgAdmin, &u.Admin)
	if err != nil {
		return nil, db.NotFound(err)
	}
	if orgID != nil {
		u.OrganisationID = *orgID
	}
	return &u, nil
}
