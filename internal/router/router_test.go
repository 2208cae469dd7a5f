package router_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/handler"
	"github.com/xavierjflanagan/Guardian-sub003/internal/metrics"
	"github.com/xavierjflanagan/Guardian-sub003/internal/router"
	"github.com/xavierjflanagan/Guardian-sub003/mocks"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func setupRouter(svc *mocks.MockManifestService) (*gin.Engine, *prometheus.Registry) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	metrics.New(reg).ManifestsTotal.WithLabelValues("success").Inc()
	r := router.Setup(handler.NewEncounterHandler(svc), handler.NewHealthHandler(okPinger{}), reg, []string{"https://app.example.com"})
	return r, reg
}

func TestRouter_EncounterRoutes(t *testing.T) {
	svc := new(mocks.MockManifestService)
	r, _ := setupRouter(svc)
	patientID, shellFileID := uuid.New(), uuid.New()
	base := "/api/v1/patients/" + patientID.String() + "/shell-files/" + shellFileID.String() + "/encounters"

	svc.On("Build", mock.Anything, mock.Anything).Return(&domain.Manifest{Encounters: []domain.ManifestEncounter{}}, nil)
	svc.On("ListEncounters", mock.Anything, patientID, shellFileID).Return([]domain.Encounter{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, base, bytes.NewBufferString(`{"ai_response":{"encounters":[]}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, base, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestRouter_RequestIDIsPropagated(t *testing.T) {
	r, _ := setupRouter(new(mocks.MockManifestService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	r, _ := setupRouter(new(mocks.MockManifestService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `encounter_manifests_total{outcome="success"} 1`)
}
