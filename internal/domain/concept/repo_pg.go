package concept

import (
	"context"

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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
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

const conceptCols = `id, uuid, name, data_type, key_values,
	low_absolute, high_absolute, low_normal, high_normal, unit,
	is_voided, organisation_id, created_date_time, last_modified_date_time`

func scanConcept(row pgx.Row) (*Concept, error) {
	var c Concept
	err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.DataType, &c.KeyValues,
		&c.LowAbsolute, &c.HighAbsolute, &c.LowNormal, &c.HighNormal, &c.Unit,
		&c.Voided, &c.OrganisationID, &c.CreatedAt, &c.LastModifiedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &c, nil
}

func (r *repoPG) GetByUUID(ctx context.Context, uuid string) (*Concept, error) {
	c, err := scanConcept(r.conn(ctx).QueryRow(ctx, `SELECT `+conceptCols+` FROM concept WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, err
	}
	c.Answers, err = r.answers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Concept, error) {
	return scanConcept(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conceptCols+` FROM concept WHERE name = $1 AND is_voided IS FALSE`, name))
}

const answerSelect = `
	SELECT ca.id, ca.uuid, ca.concept_id, ca.answer_concept_id, ac.uuid, ac.name,
	       ca.answer_order, ca.abnormal, ca.uniq, ca.is_voided, ca.organisation_id
	FROM concept_answer ca
	JOIN concept ac ON ac.id = ca.answer_concept_id`

func scanAnswer(row pgx.Row) (*Answer, error) {
	var a Answer
	err := row.Scan(&a.ID, &a.UUID, &a.ConceptID, &a.AnswerConceptID, &a.AnswerConceptUUID, &a.AnswerConceptName,
		&a.Order, &a.Abnormal, &a.Unique, &a.Voided, &a.OrganisationID)
	return &a, err
}

func (r *repoPG) answers(ctx context.Context, conceptID int64) ([]*Answer, error) {
	rows, err := r.conn(ctx).Query(ctx, answerSelect+` WHERE ca.concept_id = $1 ORDER BY ca.answer_order`, conceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repoPG) Save(ctx context.Context, c *Concept) error {
	q := r.conn(ctx)
	err := q.QueryRow(ctx, `
		INSERT INTO concept (
			uuid, name, data_type, key_values,
			low_absolute, high_absolute, low_normal, high_normal, unit,
			is_voided, organisation_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (uuid) DO UPDATE SET
			name = EXCLUDED.name, data_type = EXCLUDED.data_type, key_values = EXCLUDED.key_values,
			low_absolute = EXCLUDED.low_absolute, high_absolute = EXCLUDED.high_absolute,
			low_normal = EXCLUDED.low_normal, high_normal = EXCLUDED.high_normal, unit = EXCLUDED.unit,
			is_voided = EXCLUDED.is_voided, organisation_id = EXCLUDED.organisation_id,
			last_modified_date_time = NOW()
		RETURNING id, created_date_time, last_modified_date_time`,
		c.UUID, c.Name, c.DataType, c.KeyValues,
		c.LowAbsolute, c.HighAbsolute, c.LowNormal, c.HighNormal, c.Unit,
		c.Voided, c.OrganisationID,
	).Scan(&c.ID, &c.CreatedAt, &c.LastModifiedAt)
	if err != nil {
		return err
	}
	if len(c.Answers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range c.Answers {
		a.ConceptID = c.ID
		batch.Queue(`
			INSERT INTO concept_answer (
				uuid, concept_id, answer_concept_id, answer_order, abnormal, uniq, is_voided, organisation_id
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (uuid) DO UPDATE SET
				answer_concept_id = EXCLUDED.answer_concept_id, answer_order = EXCLUDED.answer_order,
				abnormal = EXCLUDED.abnormal, uniq = EXCLUDED.uniq, is_voided = EXCLUDED.is_voided,
				organisation_id = EXCLUDED.organisation_id, last_modified_date_time = NOW()
			RETURNING id`,
			a.UUID, a.ConceptID, a.AnswerConceptID, a.Order, a.Abnormal, a.Unique, a.Voided, a.OrganisationID,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&a.ID)
		})
	}
	return q.SendBatch(ctx, batch).Close()
}

func (r *repoPG) GetAnswer(ctx context.Context, conceptUUID, answerConceptUUID string) (*Answer, error) {
	a, err := scanAnswer(r.conn(ctx).QueryRow(ctx, answerSelect+`
		JOIN concept c ON c.id = ca.concept_id
		WHERE c.uuid = $1 AND ac.uuid = $2`, conceptUUID, answerConceptUUID))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return a, nil
}
