package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/port"
)

const encounterCols = `id, patient_id, primary_shell_file_id, encounter_type, is_real_world_visit,
	encounter_date, encounter_date_end, provider_name, facility_name,
	page_ranges, identified_in_pass, confidence, created_at, updated_at`

// The conflict target is backed by a NULLS NOT DISTINCT unique index so undated encounters
// collide on retry like dated ones do.
const upsertEncounterSQL = `INSERT INTO healthcare_encounters (
		id, patient_id, primary_shell_file_id, encounter_type, is_real_world_visit,
		encounter_date, encounter_date_end, provider_name, facility_name,
		page_ranges, identified_in_pass, confidence, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11, $12, $13, $13
	)
	ON CONFLICT (patient_id, primary_shell_file_id, encounter_type, encounter_date, page_ranges)
	DO UPDATE SET
		is_real_world_visit = EXCLUDED.is_real_world_visit,
		encounter_date_end  = EXCLUDED.encounter_date_end,
		provider_name       = EXCLUDED.provider_name,
		facility_name       = EXCLUDED.facility_name,
		identified_in_pass  = EXCLUDED.identified_in_pass,
		confidence          = EXCLUDED.confidence,
		updated_at          = EXCLUDED.updated_at
	RETURNING id, created_at`

type encounterRepo struct {
	db *sqlx.DB
}

// NewEncounterRepo creates a new PostgreSQL-backed EncounterRepository.
func NewEncounterRepo(db *sqlx.DB) port.EncounterRepository {
	return &encounterRepo{db: db}
}

func (r *encounterRepo) UpsertBatch(ctx context.Context, encounters []*domain.Encounter) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{CandidateIndex: -1, Err: fmt.Errorf("encounterRepo.UpsertBatch begin: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, e := range encounters {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		var returned struct {
			ID        uuid.UUID `db:"id"`
			CreatedAt time.Time `db:"created_at"`
		}
		err := tx.QueryRowxContext(ctx, upsertEncounterSQL,
			e.ID, e.PatientID, e.ShellFileID, e.EncounterType, e.IsRealWorldVisit,
			e.EncounterDate, e.EncounterDateEnd, e.ProviderName, e.FacilityName,
			e.PageRanges, e.IdentifiedInPass, e.Confidence, now,
		).StructScan(&returned)
		if err != nil {
			return &domain.PersistenceError{
				CandidateIndex: i,
				EncounterType:  e.EncounterType,
				Err:            fmt.Errorf("encounterRepo.UpsertBatch: %w", err),
			}
		}
		e.ID = returned.ID
		e.CreatedAt = returned.CreatedAt
		e.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{CandidateIndex: -1, Err: fmt.Errorf("encounterRepo.UpsertBatch commit: %w", err)}
	}
	return nil
}

func (r *encounterRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Encounter, error) {
	var e domain.Encounter
	err := r.db.GetContext(ctx, &e,
		`SELECT `+encounterCols+` FROM healthcare_encounters WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEncounterNotFound
		}
		return nil, fmt.Errorf("encounterRepo.GetByID: %w", err)
	}
	return &e, nil
}

func (r *encounterRepo) ListByShellFile(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error) {
	encounters := []domain.Encounter{}
	err := r.db.SelectContext(ctx, &encounters,
		`SELECT `+encounterCols+` FROM healthcare_encounters
		 WHERE patient_id = $1 AND primary_shell_file_id = $2
		 ORDER BY (page_ranges->0->>0)::int NULLS LAST, created_at`,
		patientID, shellFileID)
	if err != nil {
		return nil, fmt.Errorf("encounterRepo.ListByShellFile: %w", err)
	}
	return encounters, nil
}
