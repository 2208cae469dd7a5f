package validator

import (
	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// ValidatePageRanges rejects candidates that claim no pages or whose normalized ranges fall
// outside 1..maxPage. It must run before anything enumerates pages. A candidate with no
// pages would also share its natural key with any other undated candidate of the same type,
// so one row would silently absorb both.
func ValidatePageRanges(cands []domain.EncounterCandidate, maxPage int, policy Policy) ([]domain.EncounterCandidate, []domain.SkippedCandidate, error) {
	if maxPage < 1 {
		maxPage = domain.DefaultMaxPage
	}
	kept := make([]domain.EncounterCandidate, 0, len(cands))
	var skipped []domain.SkippedCandidate

	for i := range cands {
		c := cands[i]
		rangeErr := checkRanges(&c, maxPage)
		if rangeErr == nil {
			kept = append(kept, c)
			continue
		}
		if policy != PolicySkipInvalid {
			return nil, nil, rangeErr
		}
		skipped = append(skipped, domain.SkippedCandidate{
			CandidateIndex: c.Index,
			EncounterType:  string(c.EncounterType),
			Reason:         rangeErr.Error(),
		})
	}
	return kept, skipped, nil
}

func checkRanges(c *domain.EncounterCandidate, maxPage int) *domain.InvalidPageRangeError {
	if len(c.PageRanges) == 0 {
		return &domain.InvalidPageRangeError{
			CandidateIndex: c.Index,
			EncounterType:  c.EncounterType,
			Reason:         "no page ranges",
		}
	}
	for _, r := range c.PageRanges {
		if reason := r.Validate(maxPage); reason != "" {
			bad := r
			return &domain.InvalidPageRangeError{
				CandidateIndex: c.Index,
				EncounterType:  c.EncounterType,
				Range:          &bad,
				Reason:         reason,
			}
		}
	}
	return nil
}
