package sqlite

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

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

const encounterCols = `id, patient_id, primary_shell_file_id, encounter_type, is_real_world_visit,
	encounter_date, encounter_date_end, provider_name, facility_name,
	page_ranges, identified_in_pass, confidence, created_at, updated_at`

const upsertEncounterSQL = `INSERT INTO healthcare_encounters (
		id, patient_id, primary_shell_file_id, encounter_type, is_real_world_visit,
		encounter_date, encounter_date_end, provider_name, facility_name,
		page_ranges, identified_in_pass, confidence, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (patient_id, primary_shell_file_id, encounter_type, encounter_date, page_ranges)
	DO UPDATE SET
		is_real_world_visit = excluded.is_real_world_visit,
		encounter_date_end  = excluded.encounter_date_end,
		provider_name       = excluded.provider_name,
		facility_name       = excluded.facility_name,
		identified_in_pass  = excluded.identified_in_pass,
		confidence          = excluded.confidence,
		updated_at          = excluded.updated_at
	RETURNING id, created_at`

// encounterRow mirrors the SQLite column types.
type encounterRow struct {
	ID               uuid.UUID         `db:"id"`
	PatientID        uuid.UUID         `db:"patient_id"`
	ShellFileID      uuid.UUID         `db:"primary_shell_file_id"`
	EncounterType    string            `db:"encounter_type"`
	IsRealWorldVisit bool              `db:"is_real_world_visit"`
	EncounterDate    string            `db:"encounter_date"`
	EncounterDateEnd string            `db:"encounter_date_end"`
	ProviderName     *string           `db:"provider_name"`
	FacilityName     *string           `db:"facility_name"`
	PageRanges       domain.PageRanges `db:"page_ranges"`
	IdentifiedInPass string            `db:"identified_in_pass"`
	Confidence       float64           `db:"confidence"`
	CreatedAt        string            `db:"created_at"`
	UpdatedAt        string            `db:"updated_at"`
}

func (row *encounterRow) toDomain() (domain.Encounter, error) {
	e := domain.Encounter{
		ID:               row.ID,
		PatientID:        row.PatientID,
		ShellFileID:      row.ShellFileID,
		EncounterType:    domain.EncounterType(row.EncounterType),
		IsRealWorldVisit: row.IsRealWorldVisit,
		ProviderName:     row.ProviderName,
		FacilityName:     row.FacilityName,
		PageRanges:       row.PageRanges,
		IdentifiedInPass: row.IdentifiedInPass,
		Confidence:       row.Confidence,
	}
	var err error
	if e.EncounterDate, err = parseDate(row.EncounterDate); err != nil {
		return e, err
	}
	if e.EncounterDateEnd, err = parseDate(row.EncounterDateEnd); err != nil {
		return e, err
	}
	if e.CreatedAt, err = time.Parse(timestampLayout, row.CreatedAt); err != nil {
		return e, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timestampLayout, row.UpdatedAt); err != nil {
		return e, fmt.Errorf("parsing updated_at: %w", err)
	}
	return e, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return &t, nil
}

type encounterRepo struct {
	db *sqlx.DB
}

// NewEncounterRepo creates a new SQLite-backed EncounterRepository.
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
	stamp := now.Format(timestampLayout)
	for i, e := range encounters {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		var returned struct {
			ID        uuid.UUID `db:"id"`
			CreatedAt string    `db:"created_at"`
		}
		err := tx.QueryRowxContext(ctx, upsertEncounterSQL,
			e.ID, e.PatientID, e.ShellFileID, string(e.EncounterType), e.IsRealWorldVisit,
			formatDate(e.EncounterDate), formatDate(e.EncounterDateEnd), e.ProviderName, e.FacilityName,
			e.PageRanges, e.IdentifiedInPass, e.Confidence, stamp, stamp,
		).StructScan(&returned)
		if err != nil {
			return &domain.PersistenceError{
				CandidateIndex: i,
				EncounterType:  e.EncounterType,
				Err:            fmt.Errorf("encounterRepo.UpsertBatch: %w", err),
			}
		}
		createdAt, err := time.Parse(timestampLayout, returned.CreatedAt)
		if err != nil {
			return &domain.PersistenceError{
				CandidateIndex: i,
				EncounterType:  e.EncounterType,
				Err:            fmt.Errorf("encounterRepo.UpsertBatch created_at: %w", err),
			}
		}
		e.ID = returned.ID
		e.CreatedAt = createdAt
		e.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{CandidateIndex: -1, Err: fmt.Errorf("encounterRepo.UpsertBatch commit: %w", err)}
	}
	return nil
}

func (r *encounterRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Encounter, error) {
	var row encounterRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+encounterCols+` FROM healthcare_encounters WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEncounterNotFound
		}
		return nil, fmt.Errorf("encounterRepo.GetByID: %w", err)
	}
	e, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("encounterRepo.GetByID: %w", err)
	}
	return &e, nil
}

func (r *encounterRepo) ListByShellFile(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error) {
	var rows []encounterRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+encounterCols+` FROM healthcare_encounters
		 WHERE patient_id = ? AND primary_shell_file_id = ?
		 ORDER BY json_extract(page_ranges, '$[0][0]'), created_at`,
		patientID, shellFileID)
	if err != nil {
		return nil, fmt.Errorf("encounterRepo.ListByShellFile: %w", err)
	}
	encounters := make([]domain.Encounter, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("encounterRepo.ListByShellFile: %w", err)
		}
		encounters = append(encounters, e)
	}
	return encounters, nil
}
