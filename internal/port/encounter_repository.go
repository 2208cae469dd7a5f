package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// EncounterRepository defines the contract for encounter persistence.
type EncounterRepository interface {
	// UpsertBatch upserts each encounter on its natural key, in order, inside one transaction.
	// The stored id is written back into each encounter. On failure nothing is committed and
	// the error is a *domain.PersistenceError whose CandidateIndex is the position in the batch.
	UpsertBatch(ctx context.Context, encounters []*domain.Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Encounter, error)
	ListByShellFile(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error)
}
