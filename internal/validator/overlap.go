package validator

import (
	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// ValidateNonOverlap ensures no page is claimed by more than one candidate. Ownership is
// assigned in input order. Under PolicyAbortAll a second claim fails the batch with
// *domain.PageRangeOverlapError; under PolicySkipInvalid the later claimant is dropped whole
// and none of its pages are recorded. Pages no candidate claims are allowed.
func ValidateNonOverlap(cands []domain.EncounterCandidate, policy Policy) ([]domain.EncounterCandidate, []domain.SkippedCandidate, error) {
	owners := make(map[int]*domain.EncounterCandidate)
	kept := make([]domain.EncounterCandidate, 0, len(cands))
	var skipped []domain.SkippedCandidate

	for i := range cands {
		c := &cands[i]
		conflict := findConflict(owners, c)
		if conflict != nil {
			if policy != PolicySkipInvalid {
				return nil, nil, conflict
			}
			skipped = append(skipped, domain.SkippedCandidate{
				CandidateIndex: c.Index,
				EncounterType:  string(c.EncounterType),
				Reason:         conflict.Error(),
			})
			continue
		}
		for _, page := range c.PageRanges.Pages() {
			owners[page] = c
		}
		kept = append(kept, *c)
	}
	return kept, skipped, nil
}

// findConflict returns the first page of c already owned by another candidate.
// A candidate repeating its own page is not a conflict.
func findConflict(owners map[int]*domain.EncounterCandidate, c *domain.EncounterCandidate) *domain.PageRangeOverlapError {
	for _, page := range c.PageRanges.Pages() {
		owner, ok := owners[page]
		if !ok || owner.Index == c.Index {
			continue
		}
		return &domain.PageRangeOverlapError{
			Page:        page,
			FirstIndex:  owner.Index,
			FirstType:   owner.EncounterType,
			SecondIndex: c.Index,
			SecondType:  c.EncounterType,
		}
	}
	return nil
}
