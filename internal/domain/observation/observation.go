// Package observation builds the concept-keyed value maps stored on subjects
// and encounters.
package observation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ombhardwajj/avni-server/internal/platform/db"
	"github.com/ombhardwajj/avni-server/internal/platform/validation"
)

// Collection maps concept uuid to the recorded value. Stored as JSONB.
type Collection map[string]interface{}

// Get returns the value for conceptUUID and whether it was recorded.
func (c Collection) Get(conceptUUID string) (interface{}, bool) {
	v, ok := c[conceptUUID]
	return v, ok
}

// Request is one observation as submitted by a client. Either the concept
// uuid or its name identifies the concept.
type Request struct {
	ConceptUUID string      `json:"conceptUUID,omitempty"`
	ConceptName string      `json:"conceptName,omitempty"`
	Value       interface{} `json:"value"`
}

// ConceptResolver finds a concept uuid by name, returning db.ErrNotFound when
// no concept has that name.
type ConceptResolver interface {
	UUIDForName(ctx context.Context, name string) (string, error)
}

type Service struct {
	concepts ConceptResolver
}

func NewService(concepts ConceptResolver) *Service {
	return &Service{concepts: concepts}
}

// CreateObservations resolves name-only requests to concept uuids and
// collects the values. Later requests for the same concept win.
func (s *Service) CreateObservations(ctx context.Context, reqs []Request) (Collection, error) {
	out := make(Collection, len(reqs))
	for _, r := range reqs {
		uuid := r.ConceptUUID
		if uuid == "" {
			if r.ConceptName == "" {
				return nil, validation.Errorf("observation has neither conceptUUID nor conceptName")
			}
			resolved, err := s.concepts.UUIDForName(ctx, r.ConceptName)
			if errors.Is(err, db.ErrNotFound) {
				return nil, validation.Errorf("concept with name=%s not found", r.ConceptName)
			}
			if err != nil {
				return nil, fmt.Errorf("resolve concept %q: %w", r.ConceptName, err)
			}
			uuid = resolved
		}
		out[uuid] = r.Value
	}
	return out, nil
}
