package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ombhardwajj/avni-server/internal/platform/db"
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

const gdSelect = `
	SELECT gd.id, gd.uuid, gd.group_id, gd.dashboard_id, d.name,
	       gd.is_primary_dashboard, gd.is_secondary_dashboard, gd.is_voided,
	       gd.organisation_id, gd.last_modified_by_id, gd.last_modified_date_time
	FROM group_dashboard gd
	JOIN dashboard d ON d.id = gd.dashboard_id`

func scanGroupDashboard(row pgx.Row) (*GroupDashboard, error) {
	var gd GroupDashboard
	err := row.Scan(&gd.ID, &gd.UUID, &gd.GroupID, &gd.DashboardID, &gd.DashboardName,
		&gd.PrimaryDashboard, &gd.SecondaryDashboard, &gd.Voided,
		&gd.OrganisationID, &gd.LastModifiedByID, &gd.LastModifiedAt)
	if err != nil {
		return nil, err
	}
	return &gd, nil
}

func (r *repoPG) one(ctx context.Context, where string, arg interface{}) (*GroupDashboard, error) {
	gd, err := scanGroupDashboard(r.conn(ctx).QueryRow(ctx, gdSelect+" WHERE "+where, arg))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return gd, nil
}

func (r *repoPG) many(ctx context.Context, sql string, args ...interface{}) ([]*GroupDashboard, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*GroupDashboard
	for rows.Next() {
		gd, err := scanGroupDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gd)
	}
	return out, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*GroupDashboard, error) {
	return r.one(ctx, "gd.id = $1", id)
}

func (r *repoPG) GetByUUID(ctx context.Context, uuid string) (*GroupDashboard, error) {
	return r.one(ctx, "gd.uuid = $1", uuid)
}

func (r *repoPG) Save(ctx context.Context, gd *GroupDashboard) error {
	if gd.ID == 0 {
		return r.conn(ctx).QueryRow(ctx, `
			INSERT INTO group_dashboard (
				uuid, group_id, dashboard_id, is_primary_dashboard, is_secondary_dashboard,
				is_voided, organisation_id, created_by_id, last_modified_by_id
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
			RETURNING id, last_modified_date_time`,
			gd.UUID, gd.GroupID, gd.DashboardID, gd.PrimaryDashboard, gd.SecondaryDashboard,
			gd.Voided, gd.OrganisationID, gd.LastModifiedByID,
		).Scan(&gd.ID, &gd.LastModifiedAt)
	}

	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE group_dashboard SET
			group_id=$2, dashboard_id=$3, is_primary_dashboard=$4, is_secondary_dashboard=$5,
			is_voided=$6, organisation_id=$7, last_modified_by_id=$8, last_modified_date_time=NOW()
		WHERE id = $1
		RETURNING last_modified_date_time`,
		gd.ID, gd.GroupID, gd.DashboardID, gd.PrimaryDashboard, gd.SecondaryDashboard,
		gd.Voided, gd.OrganisationID, gd.LastModifiedByID,
	).Scan(&gd.LastModifiedAt)
	return db.NotFound(err)
}

func (r *repoPG) OthersInGroup(ctx context.Context, groupID, excludeID int64) ([]*GroupDashboard, error) {
	return r.many(ctx, gdSelect+`
		WHERE gd.group_id = $1 AND gd.id <> $2 AND gd.is_voided IS FALSE
		ORDER BY gd.id`, groupID, excludeID)
}

func (r *repoPG) ListByGroup(ctx context.Context, groupID int64) ([]*GroupDashboard, error) {
	return r.many(ctx, gdSelect+`
		WHERE gd.group_id = $1 AND gd.is_voided IS FALSE
		ORDER BY gd.is_primary_dashboard DESC, gd.is_secondary_dashboard DESC, d.name`, groupID)
}

func (r *repoPG) ExistsModifiedAfter(ctx context.Context, t time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_dashboard WHERE last_modified_date_time > $1)`, t).Scan(&exists)
	return exists, err
}

func (r *repoPG) GetGroup(ctx context.Context, id int64) (*Group, error) {
	var g Group
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM groups WHERE id = $1 AND is_voided IS FALSE`, id).
		Scan(&g.ID, &g.UUID, &g.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &g, nil
}

func (r *repoPG) LockGroup(ctx context.Context, id int64) (*Group, error) {
	var g Group
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM groups WHERE id = $1 AND is_voided IS FALSE FOR UPDATE`, id).
		Scan(&g.ID, &g.UUID, &g.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &g, nil
}

func (r *repoPG) GetGroupByUUID(ctx context.Context, uuid string) (*Group, error) {
	var g Group
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM groups WHERE uuid = $1 AND is_voided IS FALSE`, uuid).
		Scan(&g.ID, &g.UUID, &g.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &g, nil
}

func (r *repoPG) GetDashboard(ctx context.Context, id int64) (*Dashboard, error) {
	var d Dashboard
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM dashboard WHERE id = $1 AND is_voided IS FALSE`, id).
		Scan(&d.ID, &d.UUID, &d.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}

func (r *repoPG) GetDashboardByUUID(ctx context.Context, uuid string) (*Dashboard, error) {
	var d Dashboard
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, uuid, name FROM dashboard WHERE uuid = $1 AND is_voided IS FALSE`, uuid).
		Scan(&d.ID, &d.UUID, &d.Name)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}
