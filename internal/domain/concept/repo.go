package concept

import "context"

type Repository interface {
	// GetByUUID loads the concept with its answers, ordered by answer order.
	GetByUUID(ctx context.Context, uuid string) (*Concept, error)
	GetByName(ctx context.Context, name string) (*Concept, error)
	// Save upserts the concept and every answer by uuid.
	Save(ctx context.Context, c *Concept) error
	GetAnswer(ctx context.Context, conceptUUID, answerConceptUUID string) (*Answer, error)
}
