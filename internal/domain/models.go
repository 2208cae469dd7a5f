package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawPageRange is a page range as emitted by the AI model. End may be absent or null.
type RawPageRange struct {
	Start int
	End   *int
}

// UnmarshalJSON accepts [start], [start, null] and [start, end].
func (r *RawPageRange) UnmarshalJSON(data []byte) error {
	var parts []*int
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("page range must be an array of integers: %w", err)
	}
	if len(parts) == 0 || len(parts) > 2 {
		return fmt.Errorf("page range must have 1 or 2 elements, got %d", len(parts))
	}
	if parts[0] == nil {
		return fmt.Errorf("page range start must not be null")
	}
	r.Start = *parts[0]
	r.End = nil
	if len(parts) == 2 {
		r.End = parts[1]
	}
	return nil
}

// MarshalJSON writes the range back as [start, end|null].
func (r RawPageRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*int{&r.Start, r.End})
}

// DateRange is the AI-supplied date span, kept verbatim for the manifest.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// RawEncounterCandidate is a single untrusted encounter record from the AI response.
type RawEncounterCandidate struct {
	EncounterType    string         `json:"encounterType"`
	IsRealWorldVisit bool           `json:"isRealWorldVisit"`
	DateRange        *DateRange     `json:"dateRange"`
	Provider         *string        `json:"provider"`
	Facility         *string        `json:"facility"`
	PageRanges       []RawPageRange `json:"pageRanges"`
	Confidence       float64        `json:"confidence"`
	ExtractedText    string         `json:"extractedText"`
}

// PageRange is an inclusive, 1-indexed [Start, End] page span with Start <= End once normalized.
type PageRange struct {
	Start int
	End   int
}

// MarshalJSON writes the range as [start, end].
func (r PageRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

// UnmarshalJSON reads a [start, end] pair.
func (r *PageRange) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// PageRanges is the ordered list of ranges belonging to one encounter. Its JSON form is the
// stored representation of the page_ranges column and part of the natural key.
type PageRanges []PageRange

// Pages returns every page number covered by the ranges, in range order. Inverted ranges
// contribute nothing. Callers bound the ranges first; see PageRange.Validate.
func (p PageRanges) Pages() []int {
	var pages []int
	for _, r := range p {
		if r.Start > r.End {
			continue
		}
		// Stop on equality so an End of math.MaxInt cannot wrap the counter.
		for page := r.Start; ; page++ {
			pages = append(pages, page)
			if page == r.End {
				break
			}
		}
	}
	return pages
}

// Validate reports why a normalized range cannot describe pages of a document of at most
// maxPage pages, or "" when it can.
func (r PageRange) Validate(maxPage int) string {
	switch {
	case r.Start < 1:
		return fmt.Sprintf("range [%d, %d] starts before page 1", r.Start, r.End)
	case r.End < r.Start:
		return fmt.Sprintf("range [%d, %d] is inverted", r.Start, r.End)
	case r.End > maxPage:
		return fmt.Sprintf("range [%d, %d] ends past page %d", r.Start, r.End, maxPage)
	}
	return ""
}

// Value implements driver.Valuer.
func (p PageRanges) Value() (driver.Value, error) {
	if p == nil {
		p = PageRanges{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *PageRanges) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("page_ranges: unsupported scan type %T", src)
	}
	return json.Unmarshal(data, p)
}

// EncounterCandidate is a repaired and normalized candidate. Index is its position in the AI response.
type EncounterCandidate struct {
	Index            int
	EncounterType    EncounterType
	IsRealWorldVisit bool
	DateRange        *DateRange
	EncounterDate    *time.Time
	EncounterDateEnd *time.Time
	Provider         *string
	Facility         *string
	PageRanges       PageRanges
	Confidence       float64
	ExtractedText    string
}

// Encounter is a persisted row of the encounter store.
type Encounter struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	PatientID        uuid.UUID     `db:"patient_id" json:"patient_id"`
	ShellFileID      uuid.UUID     `db:"primary_shell_file_id" json:"primary_shell_file_id"`
	EncounterType    EncounterType `db:"encounter_type" json:"encounter_type"`
	IsRealWorldVisit bool          `db:"is_real_world_visit" json:"is_real_world_visit"`
	EncounterDate    *time.Time    `db:"encounter_date" json:"encounter_date"`
	EncounterDateEnd *time.Time    `db:"encounter_date_end" json:"encounter_date_end"`
	ProviderName     *string       `db:"provider_name" json:"provider_name"`
	FacilityName     *string       `db:"facility_name" json:"facility_name"`
	PageRanges       PageRanges    `db:"page_ranges" json:"page_ranges"`
	IdentifiedInPass string        `db:"identified_in_pass" json:"identified_in_pass"`
	Confidence       float64       `db:"confidence" json:"confidence"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// PageGeometry is the pixel size of one page as reported by OCR.
type PageGeometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Vertex is an absolute pixel coordinate.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingBox holds the four corners of a region, clockwise from top-left.
type BoundingBox struct {
	Vertices [4]Vertex `json:"vertices"`
}

// NormalizedBox is a region in page-relative coordinates.
type NormalizedBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullPageNormalizedBox covers the whole page.
var FullPageNormalizedBox = NormalizedBox{X: 0, Y: 0, Width: 1, Height: 1}

// PageDimensions is the pixel size recorded alongside a spatial bound.
type PageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SpatialBound locates an encounter on one page.
type SpatialBound struct {
	Page            int            `json:"page"`
	Region          string         `json:"region"`
	BoundingBox     BoundingBox    `json:"boundingBox"`
	BoundingBoxNorm NormalizedBox  `json:"boundingBoxNorm"`
	PageDimensions  PageDimensions `json:"pageDimensions"`
}

// ManifestEncounter is one entry of the manifest returned to the caller.
type ManifestEncounter struct {
	EncounterID      uuid.UUID      `json:"encounterId"`
	EncounterType    EncounterType  `json:"encounterType"`
	IsRealWorldVisit bool           `json:"isRealWorldVisit"`
	DateRange        *DateRange     `json:"dateRange"`
	Provider         *string        `json:"provider"`
	Facility         *string        `json:"facility"`
	PageRanges       PageRanges     `json:"pageRanges"`
	SpatialBounds    []SpatialBound `json:"spatialBounds"`
	Confidence       float64        `json:"confidence"`
	ExtractedText    string         `json:"extractedText"`
}

// Diagnostic records a non-fatal repair or dropped datum.
type Diagnostic struct {
	Kind           DiagnosticKind `json:"kind"`
	CandidateIndex int            `json:"candidateIndex"`
	Page           int            `json:"page,omitempty"`
	Message        string         `json:"message"`
}

// SkippedCandidate is a candidate removed under the skip-invalid batch policy.
type SkippedCandidate struct {
	CandidateIndex int    `json:"candidateIndex"`
	EncounterType  string `json:"encounterType"`
	Reason         string `json:"reason"`
}

// Manifest is the validated, persisted, spatially annotated encounter set of one document.
type Manifest struct {
	Encounters  []ManifestEncounter `json:"encounters"`
	Skipped     []SkippedCandidate  `json:"skipped,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}

// ValidEncounterTypeStrings returns the vocabulary as plain strings.
func ValidEncounterTypeStrings() []string {
	types := ValidEncounterTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func joinTypes(types []string) string {
	return strings.Join(types, ", ")
}
