package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Validation errors carry their own message since the caller needs the offending value.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrEncounterNotFound):
		return http.StatusNotFound, "ENCOUNTER_NOT_FOUND", "encounter not found"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadRequest, "MALFORMED_AI_RESPONSE", err.Error()
	case errors.Is(err, domain.ErrInvalidEncounterType):
		return http.StatusUnprocessableEntity, "INVALID_ENCOUNTER_TYPE", err.Error()
	case errors.Is(err, domain.ErrPageRangeOverlap):
		return http.StatusUnprocessableEntity, "PAGE_RANGE_OVERLAP", err.Error()
	case errors.Is(err, domain.ErrInvalidPageRange):
		return http.StatusUnprocessableEntity, "INVALID_PAGE_RANGE", err.Error()
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "PERSISTENCE_FAILED", "encounters could not be stored"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// errorDetails exposes the structured fields of validation errors.
func errorDetails(err error) interface{} {
	var typeErr *domain.InvalidEncounterTypeError
	if errors.As(err, &typeErr) {
		return gin.H{
			"value":           typeErr.Value,
			"candidate_index": typeErr.CandidateIndex,
			"valid_types":     typeErr.ValidTypes,
		}
	}
	var overlapErr *domain.PageRangeOverlapError
	if errors.As(err, &overlapErr) {
		return gin.H{
			"page":         overlapErr.Page,
			"first_index":  overlapErr.FirstIndex,
			"first_type":   overlapErr.FirstType,
			"second_index": overlapErr.SecondIndex,
			"second_type":  overlapErr.SecondType,
		}
	}
	var rangeErr *domain.InvalidPageRangeError
	if errors.As(err, &rangeErr) {
		details := gin.H{
			"candidate_index": rangeErr.CandidateIndex,
			"encounter_type":  rangeErr.EncounterType,
		}
		if rangeErr.Range != nil {
			details["range"] = rangeErr.Range
		}
		return details
	}
	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		return gin.H{"candidate_index": persistErr.CandidateIndex}
	}
	return nil
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Error().Err(err).Interface("request_id", requestID).Msg("internal error")
	}
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Details: errorDetails(err)},
	})
}
