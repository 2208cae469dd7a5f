package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/service"
)

// EncounterHandler handles encounter manifest endpoints.
type EncounterHandler struct {
	manifestService service.ManifestService
}

// NewEncounterHandler creates a new EncounterHandler.
func NewEncounterHandler(manifestService service.ManifestService) *EncounterHandler {
	return &EncounterHandler{manifestService: manifestService}
}

// BuildManifestRequest is the body of POST .../encounters.
// AIResponse may be the JSON object itself or a string holding it.
type BuildManifestRequest struct {
	AIResponse json.RawMessage       `json:"ai_response"`
	Pages      []domain.PageGeometry `json:"pages"`
}

// Build handles POST /api/v1/patients/:patient_id/shell-files/:shell_file_id/encounters
func (h *EncounterHandler) Build(c *gin.Context) {
	patientID, shellFileID, ok := documentParams(c)
	if !ok {
		return
	}

	var req BuildManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON")
		return
	}

	manifest, err := h.manifestService.Build(c.Request.Context(), &service.BuildManifestInput{
		PatientID:   patientID,
		ShellFileID: shellFileID,
		Response:    req.AIResponse,
		Pages:       req.Pages,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, manifest)
}

// List handles GET /api/v1/patients/:patient_id/shell-files/:shell_file_id/encounters
func (h *EncounterHandler) List(c *gin.Context) {
	patientID, shellFileID, ok := documentParams(c)
	if !ok {
		return
	}

	encounters, err := h.manifestService.ListEncounters(c.Request.Context(), patientID, shellFileID)
	if err != nil {
		HandleError(c, err)
		return
	}
	if encounters == nil {
		encounters = []domain.Encounter{}
	}

	RespondOK(c, encounters)
}

// GetByID handles GET /api/v1/encounters/:id
func (h *EncounterHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid encounter ID")
		return
	}

	encounter, err := h.manifestService.GetEncounter(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, encounter)
}

// documentParams parses the patient and shell file path parameters.
// Returns false if either is invalid (error response already written).
func documentParams(c *gin.Context) (patientID, shellFileID uuid.UUID, ok bool) {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid patient ID")
		return uuid.Nil, uuid.Nil, false
	}
	shellFileID, err = uuid.Parse(c.Param("shell_file_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid shell file ID")
		return uuid.Nil, uuid.Nil, false
	}
	return patientID, shellFileID, true
}
