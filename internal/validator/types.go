package validator

import (
	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// ValidateTypes checks every candidate's encounter type against the closed vocabulary.
// Under PolicyAbortAll the first unknown type fails the batch with
// *domain.InvalidEncounterTypeError. Under PolicySkipInvalid unknown candidates are removed
// and returned as skipped.
func ValidateTypes(cands []domain.EncounterCandidate, policy Policy) ([]domain.EncounterCandidate, []domain.SkippedCandidate, error) {
	kept := make([]domain.EncounterCandidate, 0, len(cands))
	var skipped []domain.SkippedCandidate

	for i := range cands {
		c := cands[i]
		if c.EncounterType.IsValid() {
			kept = append(kept, c)
			continue
		}
		typeErr := domain.NewInvalidEncounterTypeError(string(c.EncounterType), c.Index)
		if policy != PolicySkipInvalid {
			return nil, nil, typeErr
		}
		skipped = append(skipped, domain.SkippedCandidate{
			CandidateIndex: c.Index,
			EncounterType:  string(c.EncounterType),
			Reason:         typeErr.Error(),
		})
	}
	return kept, skipped, nil
}
