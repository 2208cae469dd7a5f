package validator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01", "2006"}

// RepairRanges converts raw AI candidates into candidates whose page ranges all have an end.
// A missing or null end becomes the start page (a single-page range). Date strings are parsed
// for persistence; ones that cannot be parsed are left unset. Nothing here is fatal.
func RepairRanges(raw []domain.RawEncounterCandidate) ([]domain.EncounterCandidate, []domain.Diagnostic) {
	cands := make([]domain.EncounterCandidate, 0, len(raw))
	var diags []domain.Diagnostic

	for i := range raw {
		rc := &raw[i]
		c := domain.EncounterCandidate{
			Index:            i,
			EncounterType:    domain.EncounterType(rc.EncounterType),
			IsRealWorldVisit: rc.IsRealWorldVisit,
			DateRange:        rc.DateRange,
			Provider:         rc.Provider,
			Facility:         rc.Facility,
			Confidence:       rc.Confidence,
			ExtractedText:    rc.ExtractedText,
			PageRanges:       make(domain.PageRanges, 0, len(rc.PageRanges)),
		}

		for _, r := range rc.PageRanges {
			end := r.Start
			if r.End != nil {
				end = *r.End
			} else {
				diags = append(diags, domain.Diagnostic{
					Kind:           domain.DiagnosticMissingRangeEnd,
					CandidateIndex: i,
					Page:           r.Start,
					Message:        fmt.Sprintf("range [%d, null] treated as single page [%d, %d]", r.Start, r.Start, r.Start),
				})
			}
			c.PageRanges = append(c.PageRanges, domain.PageRange{Start: r.Start, End: end})
		}

		if rc.DateRange != nil {
			var d domain.Diagnostic
			var ok bool
			c.EncounterDate, d, ok = parseDate(rc.DateRange.Start, i, "start")
			if !ok {
				diags = append(diags, d)
			}
			c.EncounterDateEnd, d, ok = parseDate(rc.DateRange.End, i, "end")
			if !ok {
				diags = append(diags, d)
			}
		}

		cands = append(cands, c)
	}
	return cands, diags
}

func parseDate(s string, idx int, which string) (*time.Time, domain.Diagnostic, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.Diagnostic{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day, domain.Diagnostic{}, true
		}
	}
	return nil, domain.Diagnostic{
		Kind:           domain.DiagnosticUnparseableDate,
		CandidateIndex: idx,
		Message:        fmt.Sprintf("date range %s %q is not a recognised date; stored as unknown", which, s),
	}, false
}

// NormalizeRanges swaps inverted ranges and sorts each candidate's ranges ascending by start.
// Running it on already normalized candidates changes nothing.
func NormalizeRanges(cands []domain.EncounterCandidate) []domain.Diagnostic {
	var diags []domain.Diagnostic
	for i := range cands {
		c := &cands[i]
		for j := range c.PageRanges {
			r := &c.PageRanges[j]
			if r.Start > r.End {
				diags = append(diags, domain.Diagnostic{
					Kind:           domain.DiagnosticInvertedRange,
					CandidateIndex: c.Index,
					Page:           r.Start,
					Message:        fmt.Sprintf("inverted range [%d, %d] swapped to [%d, %d]", r.Start, r.End, r.End, r.Start),
				})
				r.Start, r.End = r.End, r.Start
			}
		}
		sort.SliceStable(c.PageRanges, func(a, b int) bool {
			return c.PageRanges[a].Start < c.PageRanges[b].Start
		})
	}
	return diags
}
