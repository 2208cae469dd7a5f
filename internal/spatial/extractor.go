// Package spatial maps encounter page ranges onto OCR page geometry.
package spatial

import (
	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// ExtractBounds returns one entire-page bound for every page in ranges that has geometry.
// pages is indexed by page number minus one. Pages without geometry produce no bound and are
// returned in missing, in the order encountered.
func ExtractBounds(ranges domain.PageRanges, pages []domain.PageGeometry) (bounds []domain.SpatialBound, missing []int) {
	bounds = make([]domain.SpatialBound, 0)
	for _, page := range ranges.Pages() {
		if page < 1 || page > len(pages) {
			missing = append(missing, page)
			continue
		}
		bounds = append(bounds, EntirePage(page, pages[page-1]))
	}
	return bounds, missing
}

// EntirePage builds the bound covering the whole of one page.
func EntirePage(page int, g domain.PageGeometry) domain.SpatialBound {
	return domain.SpatialBound{
		Page:   page,
		Region: domain.RegionEntirePage,
		BoundingBox: domain.BoundingBox{Vertices: [4]domain.Vertex{
			{X: 0, Y: 0},
			{X: g.Width, Y: 0},
			{X: g.Width, Y: g.Height},
			{X: 0, Y: g.Height},
		}},
		BoundingBoxNorm: domain.FullPageNormalizedBox,
		PageDimensions:  domain.PageDimensions{Width: g.Width, Height: g.Height},
	}
}
