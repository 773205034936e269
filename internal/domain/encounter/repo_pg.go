package encounter

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
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

// encCols lists the shared columns with the parent column in third place.
func encCols(kind Kind, alias string) string {
	cols := []string{
		"id", "uuid", kind.parentColumn(), "encounter_type_id", "name",
		"earliest_visit_date_time", "max_visit_date_time", "encounter_date_time", "cancel_date_time",
		"observations", "cancel_observations", "encounter_location", "cancel_location",
		"legacy_id", "address_id", "filled_by_id", "organisation_id", "is_voided",
		"created_by_id", "last_modified_by_id", "created_date_time", "last_modified_date_time",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func toPGPoint(p *Point) pgtype.Point {
	if p == nil {
		return pgtype.Point{}
	}
	return pgtype.Point{P: pgtype.Vec2{X: p.X, Y: p.Y}, Valid: true}
}

func fromPGPoint(p pgtype.Point) *Point {
	if !p.Valid {
		return nil
	}
	return &Point{X: p.P.X, Y: p.P.Y}
}

func scanEncounter(row pgx.Row, kind Kind) (*Encounter, error) {
	e := &Encounter{Kind: kind}
	var parentID int64
	var encLoc, cancelLoc pgtype.Point
	err := row.Scan(
		&e.ID, &e.UUID, &parentID, &e.EncounterTypeID, &e.Name,
		&e.EarliestVisitDateTime, &e.MaxVisitDateTime, &e.EncounterDateTime, &e.CancelDateTime,
		&e.Observations, &e.CancelObservations, &encLoc, &cancelLoc,
		&e.LegacyID, &e.AddressID, &e.FilledByID, &e.OrganisationID, &e.Voided,
		&e.CreatedByID, &e.LastModifiedByID, &e.CreatedAt, &e.LastModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	e.setParentID(parentID)
	e.EncounterLocation = fromPGPoint(encLoc)
	e.CancelLocation = fromPGPoint(cancelLoc)
	return e, nil
}

func (r *repoPG) Create(ctx context.Context, e *Encounter) error {
	parent := e.ParentID()
	if parent == nil {
		return fmt.Errorf("%s %s has no parent", e.Kind, e.UUID)
	}
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			uuid, %s, encounter_type_id, name,
			earliest_visit_date_time, max_visit_date_time, encounter_date_time, cancel_date_time,
			observations, cancel_observations, encounter_location, cancel_location,
			legacy_id, address_id, filled_by_id, organisation_id, is_voided,
			created_by_id, last_modified_by_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18)
		RETURNING id, created_date_time, last_modified_date_time`,
		e.Kind.Table(), e.Kind.parentColumn())

	return r.conn(ctx).QueryRow(ctx, sql,
		e.UUID, *parent, e.EncounterTypeID, e.Name,
		e.EarliestVisitDateTime, e.MaxVisitDateTime, e.EncounterDateTime, e.CancelDateTime,
		e.Observations, e.CancelObservations, toPGPoint(e.EncounterLocation), toPGPoint(e.CancelLocation),
		e.LegacyID, e.AddressID, e.FilledByID, e.OrganisationID, e.Voided,
		e.CreatedByID,
	).Scan(&e.ID, &e.CreatedAt, &e.LastModifiedAt)
}

func (r *repoPG) Update(ctx context.Context, e *Encounter) error {
	sql := fmt.Sprintf(`
		UPDATE %s SET
			encounter_type_id=$2, name=$3,
			earliest_visit_date_time=$4, max_visit_date_time=$5, encounter_date_time=$6, cancel_date_time=$7,
			observations=$8, cancel_observations=$9, encounter_location=$10, cancel_location=$11,
			legacy_id=$12, address_id=$13, filled_by_id=$14, is_voided=$15,
			last_modified_by_id=$16, last_modified_date_time=NOW()
		WHERE id = $1
		RETURNING last_modified_date_time`, e.Kind.Table())

	err := r.conn(ctx).QueryRow(ctx, sql,
		e.ID, e.EncounterTypeID, e.Name,
		e.EarliestVisitDateTime, e.MaxVisitDateTime, e.EncounterDateTime, e.CancelDateTime,
		e.Observations, e.CancelObservations, toPGPoint(e.EncounterLocation), toPGPoint(e.CancelLocation),
		e.LegacyID, e.AddressID, e.FilledByID, e.Voided,
		e.LastModifiedByID,
	).Scan(&e.LastModifiedAt)
	return db.NotFound(err)
}

func (r *repoPG) GetByUUID(ctx context.Context, kind Kind, uuid string) (*Encounter, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s x WHERE x.uuid = $1`, encCols(kind, "x"), kind.Table())
	e, err := scanEncounter(r.conn(ctx).QueryRow(ctx, sql, uuid), kind)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return e, nil
}

func (r *repoPG) Void(ctx context.Context, kind Kind, uuid string, userID int64) error {
	sql := fmt.Sprintf(`
		UPDATE %s SET is_voided = TRUE, last_modified_by_id = $2, last_modified_date_time = NOW()
		WHERE uuid = $1`, kind.Table())
	tag, err := r.conn(ctx).Exec(ctx, sql, uuid, userID)
	if err == nil && tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return err
}

// bySubject renders the FROM and WHERE shared by the subject listings.
func bySubject(kind Kind) string {
	if kind == KindProgramEncounter {
		return `FROM program_encounter x
			JOIN program_enrolment penr ON penr.id = x.program_enrolment_id
			WHERE penr.individual_id = $1 AND x.is_voided IS FALSE`
	}
	return `FROM encounter x WHERE x.individual_id = $1 AND x.is_voided IS FALSE`
}

func (r *repoPG) ListBySubject(ctx context.Context, kind Kind, subjectID int64, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+bySubject(kind), subjectID).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := fmt.Sprintf(`SELECT %s %s
		ORDER BY coalesce(x.encounter_date_time, x.earliest_visit_date_time) DESC, x.id DESC
		LIMIT $2 OFFSET $3`, encCols(kind, "x"), bySubject(kind))
	items, err := r.list(ctx, kind, sql, subjectID, limit, offset)
	return items, total, err
}

func (r *repoPG) ListAllBySubject(ctx context.Context, kind Kind, subjectID int64) ([]*Encounter, error) {
	sql := fmt.Sprintf(`SELECT %s %s ORDER BY x.id`, encCols(kind, "x"), bySubject(kind))
	return r.list(ctx, kind, sql, subjectID)
}

func (r *repoPG) list(ctx context.Context, kind Kind, sql string, args ...interface{}) ([]*Encounter, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows, kind)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) ResolveParent(ctx context.Context, kind Kind, uuid string) (*Parent, error) {
	sql := `SELECT id, address_id FROM individual WHERE uuid = $1 AND is_voided IS FALSE`
	if kind == KindProgramEncounter {
		sql = `SELECT penr.id, i.address_id FROM program_enrolment penr
			JOIN individual i ON i.id = penr.individual_id
			WHERE penr.uuid = $1 AND penr.is_voided IS FALSE`
	}
	var p Parent
	if err := r.conn(ctx).QueryRow(ctx, sql, uuid).Scan(&p.ID, &p.AddressID); err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *repoPG) SubjectID(ctx context.Context, subjectUUID string) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM individual WHERE uuid = $1`, subjectUUID).Scan(&id)
	return id, db.NotFound(err)
}

const encounterTypeCols = `id, uuid, name, concept_id, encounter_eligibility_check_rule,
	active, is_immutable, is_voided, organisation_id`

func scanEncounterType(row pgx.Row) (*EncounterType, error) {
	var t EncounterType
	err := row.Scan(&t.ID, &t.UUID, &t.Name, &t.ConceptID, &t.EncounterEligibilityCheckRule,
		&t.Active, &t.Immutable, &t.Voided, &t.OrganisationID)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &t, nil
}

func (r *repoPG) GetEncounterTypeByUUID(ctx context.Context, uuid string) (*EncounterType, error) {
	return scanEncounterType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterTypeCols+` FROM encounter_type WHERE uuid = $1`, uuid))
}

func (r *repoPG) GetEncounterTypeByID(ctx context.Context, id int64) (*EncounterType, error) {
	return scanEncounterType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterTypeCols+` FROM encounter_type WHERE id = $1`, id))
}
