package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/metrics"
	"github.com/xavierjflanagan/Guardian-sub003/internal/repository/sqlite"
	"github.com/xavierjflanagan/Guardian-sub003/internal/service"
	"github.com/xavierjflanagan/Guardian-sub003/internal/validator"
	"github.com/xavierjflanagan/Guardian-sub003/mocks"
)

const scenarioOne = `{"encounters":[
  {"encounterType":"inpatient","isRealWorldVisit":true,"dateRange":{"start":"2024-03-01","end":"2024-03-05"},
   "provider":"Dr Smith","facility":"St Vincent's","pageRanges":[[1,10],[15,18]],"confidence":0.92,"extractedText":"Admission"},
  {"encounterType":"pseudo_medication_list","isRealWorldVisit":false,"dateRange":null,"provider":null,"facility":null,
   "pageRanges":[[19,20]],"confidence":0.8,"extractedText":"Medications"}
]}`

func uniformPages(n int) []domain.PageGeometry {
	pages := make([]domain.PageGeometry, n)
	for i := range pages {
		pages[i] = domain.PageGeometry{Width: 1240, Height: 1754}
	}
	return pages
}

func setupManifestService(policy validator.Policy) (service.ManifestService, *mocks.MockEncounterRepo, *mocks.MockPageGeometrySource) {
	repo := new(mocks.MockEncounterRepo)
	geometry := new(mocks.MockPageGeometrySource)
	svc := service.NewManifestService(repo, geometry, nil, service.ManifestConfig{Policy: policy})
	return svc, repo, geometry
}

// storeAssignsIDs simulates a store that keeps the proposed id of every row.
func storeAssignsIDs(args mock.Arguments) {
	for _, e := range args.Get(1).([]*domain.Encounter) {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
}

func TestManifestService_Build_TwoDisjointEncounters(t *testing.T) {
	svc, repo, geometry := setupManifestService(validator.PolicyAbortAll)
	patientID, shellFileID := uuid.New(), uuid.New()

	var persisted []*domain.Encounter
	repo.On("UpsertBatch", mock.Anything, mock.AnythingOfType("[]*domain.Encounter")).
		Run(func(args mock.Arguments) {
			storeAssignsIDs(args)
			persisted = args.Get(1).([]*domain.Encounter)
		}).
		Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID:   patientID,
		ShellFileID: shellFileID,
		Response:    []byte(scenarioOne),
		Pages:       uniformPages(20),
	})

	require.NoError(t, err)
	require.Len(t, manifest.Encounters, 2)
	assert.Empty(t, manifest.Skipped)
	assert.Empty(t, manifest.Diagnostics)

	first, second := manifest.Encounters[0], manifest.Encounters[1]
	assert.Equal(t, domain.EncounterInpatient, first.EncounterType)
	assert.Equal(t, domain.EncounterPseudoMedicationList, second.EncounterType)
	assert.Equal(t, persisted[0].ID, first.EncounterID)
	assert.Equal(t, persisted[1].ID, second.EncounterID)
	assert.Equal(t, "2024-03-01", first.DateRange.Start)
	assert.Equal(t, "Admission", first.ExtractedText)
	assert.Len(t, first.SpatialBounds, 14)
	assert.Len(t, second.SpatialBounds, 2)
	assert.Equal(t, 19, second.SpatialBounds[0].Page)

	require.Len(t, persisted, 2)
	assert.Equal(t, patientID, persisted[0].PatientID)
	assert.Equal(t, shellFileID, persisted[0].ShellFileID)
	assert.Equal(t, service.DefaultIdentifiedInPass, persisted[0].IdentifiedInPass)
	require.NotNil(t, persisted[0].EncounterDate)
	assert.Equal(t, "2024-03-01", persisted[0].EncounterDate.Format("2006-01-02"))
	assert.Nil(t, persisted[1].EncounterDate)

	geometry.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestManifestService_Build_PreservesInputOrder(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)
	raw := `{"encounters":[
	  {"encounterType":"telehealth","pageRanges":[[9,9]]},
	  {"encounterType":"gp_appointment","pageRanges":[[1,2]]},
	  {"encounterType":"pseudo_insurance","pageRanges":[[5,6]]}
	]}`
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Run(storeAssignsIDs).Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(10),
	})

	require.NoError(t, err)
	require.Len(t, manifest.Encounters, 3)
	assert.Equal(t, domain.EncounterTelehealth, manifest.Encounters[0].EncounterType)
	assert.Equal(t, domain.EncounterGPAppointment, manifest.Encounters[1].EncounterType)
	assert.Equal(t, domain.EncounterPseudoInsurance, manifest.Encounters[2].EncounterType)
}

func TestManifestService_Build_OverlapAbortsBeforePersistence(t *testing.T) {
	svc, repo, geometry := setupManifestService(validator.PolicyAbortAll)
	raw := `{"encounters":[
	  {"encounterType":"outpatient","pageRanges":[[1,3]]},
	  {"encounterType":"pseudo_lab_report","pageRanges":[[3,4]]}
	]}`

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw),
	})

	assert.Nil(t, manifest)
	var overlapErr *domain.PageRangeOverlapError
	require.True(t, errors.As(err, &overlapErr))
	assert.Equal(t, 3, overlapErr.Page)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
	geometry.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestManifestService_Build_RepairsRanges(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)
	raw := `{"encounters":[
	  {"encounterType":"inpatient","pageRanges":[[5,1]]},
	  {"encounterType":"pseudo_referral_letter","pageRanges":[[7,null]]}
	]}`
	var persisted []*domain.Encounter
	repo.On("UpsertBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(1).([]*domain.Encounter) }).
		Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(8),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PageRanges{{Start: 1, End: 5}}, manifest.Encounters[0].PageRanges)
	assert.Equal(t, domain.PageRanges{{Start: 7, End: 7}}, manifest.Encounters[1].PageRanges)
	assert.Equal(t, domain.PageRanges{{Start: 1, End: 5}}, persisted[0].PageRanges)

	kinds := make([]domain.DiagnosticKind, 0, len(manifest.Diagnostics))
	for _, d := range manifest.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.ElementsMatch(t, []domain.DiagnosticKind{domain.DiagnosticMissingRangeEnd, domain.DiagnosticInvertedRange}, kinds)
}

func TestManifestService_Build_InvalidType(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)
	raw := `{"encounters":[{"encounterType":"unknown_type","pageRanges":[[1,1]]}]}`

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw),
	})

	assert.Nil(t, manifest)
	var typeErr *domain.InvalidEncounterTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "unknown_type", typeErr.Value)
	assert.Len(t, typeErr.ValidTypes, len(domain.ValidEncounterTypes()))
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestManifestService_Build_MalformedResponse(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(`{"encounter": []}`),
	})

	assert.Nil(t, manifest)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestManifestService_Build_EmptyEncounterList(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(`{"encounters":[]}`), Pages: uniformPages(1),
	})

	require.NoError(t, err)
	assert.NotNil(t, manifest.Encounters)
	assert.Empty(t, manifest.Encounters)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestManifestService_Build_SkipInvalidPolicy(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicySkipInvalid)
	raw := `{"encounters":[
	  {"encounterType":"walk_in","pageRanges":[[1,1]]},
	  {"encounterType":"inpatient","pageRanges":[[2,4]]},
	  {"encounterType":"pseudo_lab_report","pageRanges":[[4,5]]},
	  {"encounterType":"pseudo_imaging_report","pageRanges":[[6,6]]}
	]}`
	var persisted []*domain.Encounter
	repo.On("UpsertBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(1).([]*domain.Encounter) }).
		Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(6),
	})

	require.NoError(t, err)
	require.Len(t, manifest.Encounters, 2)
	assert.Equal(t, domain.EncounterInpatient, manifest.Encounters[0].EncounterType)
	assert.Equal(t, domain.EncounterPseudoImagingReport, manifest.Encounters[1].EncounterType)
	assert.Len(t, persisted, 2)

	require.Len(t, manifest.Skipped, 2)
	assert.Equal(t, 0, manifest.Skipped[0].CandidateIndex)
	assert.Equal(t, 2, manifest.Skipped[1].CandidateIndex)
}

func TestManifestService_Build_PersistenceErrorNamesCandidate(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicySkipInvalid)
	raw := `{"encounters":[
	  {"encounterType":"bogus","pageRanges":[[1,1]]},
	  {"encounterType":"outpatient","pageRanges":[[2,2]]},
	  {"encounterType":"telehealth","pageRanges":[[3,3]]}
	]}`
	// The store reports the second row of the batch, which is candidate 2 of the response.
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(&domain.PersistenceError{
		CandidateIndex: 1,
		EncounterType:  domain.EncounterTelehealth,
		Err:            errors.New("connection reset"),
	})

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(3),
	})

	assert.Nil(t, manifest)
	var persistErr *domain.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, 2, persistErr.CandidateIndex)
	assert.Equal(t, domain.EncounterTelehealth, persistErr.EncounterType)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestManifestService_Build_WrapsUntypedStoreError(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(),
		Response: []byte(`{"encounters":[{"encounterType":"inpatient","pageRanges":[[1,1]]}]}`),
		Pages:    uniformPages(1),
	})

	var persistErr *domain.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, -1, persistErr.CandidateIndex)
}

func TestManifestService_Build_LoadsGeometryFromSource(t *testing.T) {
	svc, repo, geometry := setupManifestService(validator.PolicyAbortAll)
	shellFileID := uuid.New()
	geometry.On("Load", mock.Anything, shellFileID).Return(uniformPages(2), nil)
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Run(storeAssignsIDs).Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: shellFileID,
		Response: []byte(`{"encounters":[{"encounterType":"emergency_department","pageRanges":[[1,2]]}]}`),
	})

	require.NoError(t, err)
	assert.Len(t, manifest.Encounters[0].SpatialBounds, 2)
	geometry.AssertExpectations(t)
}

func TestManifestService_Build_GeometryFailureLeavesNoRows(t *testing.T) {
	svc, repo, geometry := setupManifestService(validator.PolicyAbortAll)
	geometry.On("Load", mock.Anything, mock.Anything).Return(nil, errors.New("ocr artefact missing"))

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(),
		Response: []byte(`{"encounters":[{"encounterType":"inpatient","pageRanges":[[1,1]]}]}`),
	})

	assert.Nil(t, manifest)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
}

func TestManifestService_Build_MissingGeometryIsReported(t *testing.T) {
	repo := new(mocks.MockEncounterRepo)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.NewManifestService(repo, nil, m, service.ManifestConfig{})
	repo.On("UpsertBatch", mock.Anything, mock.Anything).Run(storeAssignsIDs).Return(nil)

	manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(),
		Response: []byte(`{"encounters":[{"encounterType":"inpatient","pageRanges":[[2,4]]}]}`),
		Pages:    uniformPages(2),
	})

	require.NoError(t, err)
	require.Len(t, manifest.Encounters[0].SpatialBounds, 1)
	assert.Equal(t, 2, manifest.Encounters[0].SpatialBounds[0].Page)

	require.Len(t, manifest.Diagnostics, 2)
	for i, page := range []int{3, 4} {
		assert.Equal(t, domain.DiagnosticMissingPageGeometry, manifest.Diagnostics[i].Kind)
		assert.Equal(t, page, manifest.Diagnostics[i].Page)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.MissingGeometryPages))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("missing_page_geometry")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ManifestsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EncountersPersisted.WithLabelValues("inserted")))
}

func TestManifestService_Build_IdempotentAgainstStore(t *testing.T) {
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.NewManifestService(sqlite.NewEncounterRepo(db), nil, m, service.ManifestConfig{})
	input := &service.BuildManifestInput{
		PatientID:   uuid.New(),
		ShellFileID: uuid.New(),
		Response:    []byte(scenarioOne),
		Pages:       uniformPages(20),
	}

	first, err := svc.Build(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.Build(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, second.Encounters, len(first.Encounters))
	for i := range first.Encounters {
		assert.Equal(t, first.Encounters[i].EncounterID, second.Encounters[i].EncounterID, fmt.Sprintf("encounter %d", i))
	}

	var rows int
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM healthcare_encounters`))
	assert.Equal(t, 2, rows)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EncountersPersisted.WithLabelValues("inserted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EncountersPersisted.WithLabelValues("updated")))

	stored, err := svc.ListEncounters(context.Background(), input.PatientID, input.ShellFileID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, first.Encounters[0].EncounterID, stored[0].ID)
}

func TestManifestService_GetEncounter(t *testing.T) {
	svc, repo, _ := setupManifestService(validator.PolicyAbortAll)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrEncounterNotFound)

	got, err := svc.GetEncounter(context.Background(), id)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrEncounterNotFound)
}

func TestManifestService_Build_EmptyPageRangesNeverShareARow(t *testing.T) {
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()
	raw := `{"encounters":[
	  {"encounterType":"pseudo_lab_report","pageRanges":[],"confidence":0.9,"provider":"Path Lab"},
	  {"encounterType":"pseudo_lab_report","pageRanges":[],"confidence":0.2},
	  {"encounterType":"outpatient","pageRanges":[[1,2]],"confidence":0.7}
	]}`
	input := &service.BuildManifestInput{
		PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(2),
	}

	abortSvc := service.NewManifestService(sqlite.NewEncounterRepo(db), nil, nil, service.ManifestConfig{})
	manifest, err := abortSvc.Build(context.Background(), input)

	assert.Nil(t, manifest)
	var rangeErr *domain.InvalidPageRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 0, rangeErr.CandidateIndex)

	var rows int
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM healthcare_encounters`))
	assert.Equal(t, 0, rows)

	skipSvc := service.NewManifestService(sqlite.NewEncounterRepo(db), nil, nil, service.ManifestConfig{Policy: validator.PolicySkipInvalid})
	manifest, err = skipSvc.Build(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, manifest.Encounters, 1)
	assert.Equal(t, domain.EncounterOutpatient, manifest.Encounters[0].EncounterType)
	require.Len(t, manifest.Skipped, 2)
	assert.Equal(t, 0, manifest.Skipped[0].CandidateIndex)
	assert.Equal(t, 1, manifest.Skipped[1].CandidateIndex)
	require.NoError(t, db.Get(&rows, `SELECT COUNT(*) FROM healthcare_encounters`))
	assert.Equal(t, 1, rows)
}

func TestManifestService_Build_RejectsUnboundedPageNumbers(t *testing.T) {
	tests := []struct {
		name   string
		ranges string
	}{
		{"page zero", `[[0,2]]`},
		{"negative start", `[[-3,1]]`},
		{"huge end", `[[1,2000000000]]`},
		{"int limit", `[[1,9223372036854775807]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockEncounterRepo)
			m := metrics.New(prometheus.NewRegistry())
			svc := service.NewManifestService(repo, nil, m, service.ManifestConfig{MaxPage: 100})
			raw := `{"encounters":[{"encounterType":"inpatient","pageRanges":` + tt.ranges + `}]}`

			manifest, err := svc.Build(context.Background(), &service.BuildManifestInput{
				PatientID: uuid.New(), ShellFileID: uuid.New(), Response: []byte(raw), Pages: uniformPages(2),
			})

			assert.Nil(t, manifest)
			assert.ErrorIs(t, err, domain.ErrInvalidPageRange)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.ManifestsTotal.WithLabelValues("invalid_page_range")))
			repo.AssertNotCalled(t, "UpsertBatch", mock.Anything, mock.Anything)
		})
	}
}
