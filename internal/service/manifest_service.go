package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/metrics"
	"github.com/xavierjflanagan/Guardian-sub003/internal/parser"
	"github.com/xavierjflanagan/Guardian-sub003/internal/port"
	"github.com/xavierjflanagan/Guardian-sub003/internal/spatial"
	"github.com/xavierjflanagan/Guardian-sub003/internal/validator"
)

// DefaultIdentifiedInPass marks rows written by this pipeline stage.
const DefaultIdentifiedInPass = "pass_0.5"

// BuildManifestInput is the DTO for building one document's encounter manifest.
type BuildManifestInput struct {
	PatientID   uuid.UUID
	ShellFileID uuid.UUID
	Response    []byte
	// Pages overrides the geometry source when non-nil. pages[i] describes page i+1.
	Pages []domain.PageGeometry
}

// ManifestConfig holds pipeline settings.
type ManifestConfig struct {
	Policy           validator.Policy
	IdentifiedInPass string
	// MaxPage is the highest page number accepted in a candidate's ranges.
	MaxPage int
}

// ManifestService defines the encounter manifest contract.
type ManifestService interface {
	Build(ctx context.Context, input *BuildManifestInput) (*domain.Manifest, error)
	GetEncounter(ctx context.Context, id uuid.UUID) (*domain.Encounter, error)
	ListEncounters(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error)
}

type manifestService struct {
	repo     port.EncounterRepository
	geometry port.PageGeometrySource // optional when callers always supply pages
	metrics  *metrics.Metrics        // optional
	cfg      ManifestConfig
}

// NewManifestService creates a new ManifestService implementation.
func NewManifestService(
	repo port.EncounterRepository,
	geometry port.PageGeometrySource,
	m *metrics.Metrics,
	cfg ManifestConfig,
) ManifestService {
	if cfg.Policy == "" {
		cfg.Policy = validator.PolicyAbortAll
	}
	if cfg.IdentifiedInPass == "" {
		cfg.IdentifiedInPass = DefaultIdentifiedInPass
	}
	if cfg.MaxPage < 1 {
		cfg.MaxPage = domain.DefaultMaxPage
	}
	return &manifestService{
		repo:     repo,
		geometry: geometry,
		metrics:  m,
		cfg:      cfg,
	}
}

// Build runs the whole pipeline for one document: parse, repair, normalize, validate,
// persist, extract spatial bounds, assemble. Any fatal error returns no manifest.
func (s *manifestService) Build(ctx context.Context, input *BuildManifestInput) (*domain.Manifest, error) {
	start := time.Now()
	logger := log.With().
		Str("patient_id", input.PatientID.String()).
		Str("shell_file_id", input.ShellFileID.String()).
		Logger()

	manifest, err := s.build(ctx, input, logger)

	if s.metrics != nil {
		s.metrics.BuildDuration.Observe(time.Since(start).Seconds())
		s.metrics.ManifestsTotal.WithLabelValues(outcome(err)).Inc()
	}
	if err != nil {
		logger.Error().Err(err).Msg("encounter manifest build failed")
		return nil, err
	}
	logger.Info().
		Int("encounters", len(manifest.Encounters)).
		Int("skipped", len(manifest.Skipped)).
		Int("diagnostics", len(manifest.Diagnostics)).
		Dur("duration", time.Since(start)).
		Msg("encounter manifest built")
	return manifest, nil
}

func (s *manifestService) build(ctx context.Context, input *BuildManifestInput, logger zerolog.Logger) (*domain.Manifest, error) {
	raw, err := parser.ParseEncounterResponse(input.Response)
	if err != nil {
		return nil, err
	}

	cands, diags := validator.RepairRanges(raw)
	diags = append(diags, validator.NormalizeRanges(cands)...)
	s.reportDiagnostics(logger, diags)

	cands, skippedTypes, err := validator.ValidateTypes(cands, s.cfg.Policy)
	if err != nil {
		return nil, err
	}
	s.reportSkipped(logger, "type", skippedTypes)

	cands, skippedRanges, err := validator.ValidatePageRanges(cands, s.cfg.MaxPage, s.cfg.Policy)
	if err != nil {
		return nil, err
	}
	s.reportSkipped(logger, "page_range", skippedRanges)

	cands, skippedOverlap, err := validator.ValidateNonOverlap(cands, s.cfg.Policy)
	if err != nil {
		return nil, err
	}
	s.reportSkipped(logger, "overlap", skippedOverlap)

	// Geometry comes from an external collaborator; load it before anything is committed.
	pages, err := s.loadPages(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("loading page geometry: %w", err)
	}

	encounters, err := s.persist(ctx, input, cands)
	if err != nil {
		return nil, err
	}

	bounds := make([][]domain.SpatialBound, len(cands))
	var geometryDiags []domain.Diagnostic
	for i := range cands {
		var missing []int
		bounds[i], missing = spatial.ExtractBounds(cands[i].PageRanges, pages)
		for _, page := range missing {
			geometryDiags = append(geometryDiags, domain.Diagnostic{
				Kind:           domain.DiagnosticMissingPageGeometry,
				CandidateIndex: cands[i].Index,
				Page:           page,
				Message:        fmt.Sprintf("no OCR geometry for page %d (document has %d pages)", page, len(pages)),
			})
		}
	}
	s.reportDiagnostics(logger, geometryDiags)
	if s.metrics != nil && len(geometryDiags) > 0 {
		s.metrics.MissingGeometryPages.Add(float64(len(geometryDiags)))
	}

	manifest := &domain.Manifest{
		Encounters:  assembleManifest(cands, encounters, bounds),
		Diagnostics: append(diags, geometryDiags...),
	}
	manifest.Skipped = append(manifest.Skipped, skippedTypes...)
	manifest.Skipped = append(manifest.Skipped, skippedRanges...)
	manifest.Skipped = append(manifest.Skipped, skippedOverlap...)
	return manifest, nil
}

func (s *manifestService) loadPages(ctx context.Context, input *BuildManifestInput) ([]domain.PageGeometry, error) {
	if input.Pages != nil {
		return input.Pages, nil
	}
	if s.geometry == nil {
		return nil, nil
	}
	return s.geometry.Load(ctx, input.ShellFileID)
}

// persist upserts every validated candidate, in input order, as one batch.
func (s *manifestService) persist(ctx context.Context, input *BuildManifestInput, cands []domain.EncounterCandidate) ([]*domain.Encounter, error) {
	encounters := make([]*domain.Encounter, len(cands))
	proposed := make([]uuid.UUID, len(cands))
	for i := range cands {
		c := &cands[i]
		proposed[i] = uuid.New()
		encounters[i] = &domain.Encounter{
			ID:               proposed[i],
			PatientID:        input.PatientID,
			ShellFileID:      input.ShellFileID,
			EncounterType:    c.EncounterType,
			IsRealWorldVisit: c.IsRealWorldVisit,
			EncounterDate:    c.EncounterDate,
			EncounterDateEnd: c.EncounterDateEnd,
			ProviderName:     c.Provider,
			FacilityName:     c.Facility,
			PageRanges:       c.PageRanges,
			IdentifiedInPass: s.cfg.IdentifiedInPass,
			Confidence:       c.Confidence,
		}
	}
	if len(encounters) == 0 {
		return encounters, nil
	}

	if err := s.repo.UpsertBatch(ctx, encounters); err != nil {
		return nil, candidatePersistenceError(err, cands)
	}

	if s.metrics != nil {
		for i, e := range encounters {
			result := "updated"
			if e.ID == proposed[i] {
				result = "inserted"
			}
			s.metrics.EncountersPersisted.WithLabelValues(result).Inc()
		}
	}
	return encounters, nil
}

// candidatePersistenceError rewrites a batch position into the candidate's index in the AI response.
func candidatePersistenceError(err error, cands []domain.EncounterCandidate) error {
	var pErr *domain.PersistenceError
	if !errors.As(err, &pErr) {
		return &domain.PersistenceError{CandidateIndex: -1, Err: err}
	}
	if pErr.CandidateIndex >= 0 && pErr.CandidateIndex < len(cands) {
		c := cands[pErr.CandidateIndex]
		return &domain.PersistenceError{CandidateIndex: c.Index, EncounterType: c.EncounterType, Err: pErr.Err}
	}
	return pErr
}

func (s *manifestService) reportDiagnostics(logger zerolog.Logger, diags []domain.Diagnostic) {
	for _, d := range diags {
		logger.Warn().
			Str("kind", string(d.Kind)).
			Int("candidate", d.CandidateIndex).
			Int("page", d.Page).
			Msg(d.Message)
		if s.metrics != nil {
			s.metrics.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
		}
	}
}

func (s *manifestService) reportSkipped(logger zerolog.Logger, stage string, skipped []domain.SkippedCandidate) {
	for _, sc := range skipped {
		logger.Warn().
			Str("stage", stage).
			Int("candidate", sc.CandidateIndex).
			Str("encounter_type", sc.EncounterType).
			Msg("candidate skipped: " + sc.Reason)
		if s.metrics != nil {
			s.metrics.SkippedCandidates.WithLabelValues(stage).Inc()
		}
	}
}

func (s *manifestService) GetEncounter(ctx context.Context, id uuid.UUID) (*domain.Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *manifestService) ListEncounters(ctx context.Context, patientID, shellFileID uuid.UUID) ([]domain.Encounter, error) {
	return s.repo.ListByShellFile(ctx, patientID, shellFileID)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "parse_error"
	case errors.Is(err, domain.ErrInvalidEncounterType):
		return "invalid_type"
	case errors.Is(err, domain.ErrInvalidPageRange):
		return "invalid_page_range"
	case errors.Is(err, domain.ErrPageRangeOverlap):
		return "overlap"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
