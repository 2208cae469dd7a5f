package service

import (
	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// assembleManifest merges the stored id, the AI metadata and the spatial bounds of each
// candidate. Entries keep the candidates' input order.
func assembleManifest(cands []domain.EncounterCandidate, encounters []*domain.Encounter, bounds [][]domain.SpatialBound) []domain.ManifestEncounter {
	out := make([]domain.ManifestEncounter, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		out = append(out, domain.ManifestEncounter{
			EncounterID:      encounters[i].ID,
			EncounterType:    c.EncounterType,
			IsRealWorldVisit: c.IsRealWorldVisit,
			DateRange:        c.DateRange,
			Provider:         c.Provider,
			Facility:         c.Facility,
			PageRanges:       c.PageRanges,
			SpatialBounds:    bounds[i],
			Confidence:       c.Confidence,
			ExtractedText:    c.ExtractedText,
		})
	}
	return out
}
