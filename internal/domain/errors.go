package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEncounterNotFound    = errors.New("encounter not found")
	ErrMalformedResponse    = errors.New("malformed AI encounter response")
	ErrInvalidEncounterType = errors.New("invalid encounter type")
	ErrPageRangeOverlap     = errors.New("page claimed by more than one encounter")
	ErrInvalidPageRange     = errors.New("invalid page range")
	ErrPersistence          = errors.New("encounter persistence failed")
)

// ParseError reports an AI payload that does not have the {encounters: [...]} shape.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing encounter response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing encounter response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformedResponse }

// InvalidEncounterTypeError names a classification tag outside the closed vocabulary.
type InvalidEncounterTypeError struct {
	Value          string
	CandidateIndex int
	ValidTypes     []string
}

func (e *InvalidEncounterTypeError) Error() string {
	return fmt.Sprintf("invalid encounter type %q at candidate %d; valid types: %s",
		e.Value, e.CandidateIndex, joinTypes(e.ValidTypes))
}

func (e *InvalidEncounterTypeError) Is(target error) bool { return target == ErrInvalidEncounterType }

// NewInvalidEncounterTypeError builds the error with the full vocabulary attached.
func NewInvalidEncounterTypeError(value string, candidateIndex int) *InvalidEncounterTypeError {
	return &InvalidEncounterTypeError{
		Value:          value,
		CandidateIndex: candidateIndex,
		ValidTypes:     ValidEncounterTypeStrings(),
	}
}

// InvalidPageRangeError rejects a candidate whose page ranges are empty or fall outside
// 1 to the configured page limit.
type InvalidPageRangeError struct {
	CandidateIndex int
	EncounterType  EncounterType
	Range          *PageRange // nil when the candidate has no ranges
	Reason         string
}

func (e *InvalidPageRangeError) Error() string {
	return fmt.Sprintf("candidate %d (%s): %s", e.CandidateIndex, e.EncounterType, e.Reason)
}

func (e *InvalidPageRangeError) Is(target error) bool { return target == ErrInvalidPageRange }

// PageRangeOverlapError identifies a page claimed by two candidates.
type PageRangeOverlapError struct {
	Page        int
	FirstIndex  int
	FirstType   EncounterType
	SecondIndex int
	SecondType  EncounterType
}

func (e *PageRangeOverlapError) Error() string {
	return fmt.Sprintf("page %d claimed by both candidate %d (%s) and candidate %d (%s)",
		e.Page, e.FirstIndex, e.FirstType, e.SecondIndex, e.SecondType)
}

func (e *PageRangeOverlapError) Is(target error) bool { return target == ErrPageRangeOverlap }

// PersistenceError wraps a store failure while upserting one candidate.
type PersistenceError struct {
	CandidateIndex int
	EncounterType  EncounterType
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting encounter %d (%s): %v", e.CandidateIndex, e.EncounterType, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
