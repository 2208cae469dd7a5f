package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
)

// PageGeometrySource supplies OCR page sizes for a shell file, indexed by page number minus one.
type PageGeometrySource interface {
	Load(ctx context.Context, shellFileID uuid.UUID) ([]domain.PageGeometry, error)
}
