// Package ocr adapts the OCR collaborator's page geometry output.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/xavierjflanagan/Guardian-sub003/internal/domain"
	"github.com/xavierjflanagan/Guardian-sub003/internal/port"
)

// pagesArtefact is the OCR artefact layout: pages[i] describes page i+1.
type pagesArtefact struct {
	Pages []domain.PageGeometry `json:"pages"`
}

// KeyFunc maps a shell file to the object key of its OCR artefact.
type KeyFunc func(shellFileID string) string

// StorageGeometrySource reads page geometry from the OCR artefact stored in object storage.
type StorageGeometrySource struct {
	storage port.ObjectStorage
	bucket  string
	key     KeyFunc
}

// NewStorageGeometrySource creates a PageGeometrySource backed by object storage.
func NewStorageGeometrySource(storage port.ObjectStorage, bucket string, key KeyFunc) *StorageGeometrySource {
	return &StorageGeometrySource{storage: storage, bucket: bucket, key: key}
}

func (s *StorageGeometrySource) Load(ctx context.Context, shellFileID uuid.UUID) ([]domain.PageGeometry, error) {
	key := s.key(shellFileID.String())
	data, err := s.storage.Download(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("downloading OCR artefact: %w", err)
	}
	return DecodePages(data)
}

// DecodePages parses an OCR artefact of the form {"pages": [{"width": W, "height": H}, ...]}.
func DecodePages(data []byte) ([]domain.PageGeometry, error) {
	var artefact pagesArtefact
	if err := json.Unmarshal(data, &artefact); err != nil {
		return nil, fmt.Errorf("decoding OCR artefact: %w", err)
	}
	return artefact.Pages, nil
}

// StaticGeometry is a PageGeometrySource over geometry already in memory.
type StaticGeometry []domain.PageGeometry

func (s StaticGeometry) Load(_ context.Context, _ uuid.UUID) ([]domain.PageGeometry, error) {
	return s, nil
}

var (
	_ port.PageGeometrySource = (*StorageGeometrySource)(nil)
	_ port.PageGeometrySource = StaticGeometry(nil)
)
