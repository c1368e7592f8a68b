package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Document is the object representing a tagged document.
type Document struct {
	ID          string
	Name        string
	SourcePath  string
	ContentType string
	// Length is the text length in characters; annotation offsets must not exceed it.
	Length    int
	CreatedTs int64
	UpdatedTs int64
}

// FindDocument is the find condition for document.
type FindDocument struct {
	ID         *string
	SourcePath *string

	Limit  *int
	Offset *int
}

// DeleteDocument is the delete request for document.
type DeleteDocument struct {
	ID string
}

// ErrDocumentNotFound is returned when a document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// UpsertDocument creates or updates a document. A new ID is generated when empty.
func (s *Store) UpsertDocument(ctx context.Context, upsert *Document) (*Document, error) {
	if upsert.Length < 0 {
		return nil, errors.Errorf("invalid document length %d", upsert.Length)
	}
	if upsert.ID == "" {
		upsert.ID = uuid.NewString()
	}
	doc, err := s.driver.UpsertDocument(ctx, upsert)
	if err != nil {
		return nil, err
	}
	s.documentCache.Set(doc.ID, doc)
	return doc, nil
}

// GetDocument returns the document with the given ID or ErrDocumentNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	if cached, ok := s.documentCache.Get(id); ok {
		return cached, nil
	}

	list, err := s.driver.ListDocuments(ctx, &FindDocument{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Wrapf(ErrDocumentNotFound, "id %s", id)
	}
	s.documentCache.Set(id, list[0])
	return list[0], nil
}

// FindDocumentBySource returns the document loaded from sourcePath, or nil.
func (s *Store) FindDocumentBySource(ctx context.Context, sourcePath string) (*Document, error) {
	limit := 1
	list, err := s.driver.ListDocuments(ctx, &FindDocument{SourcePath: &sourcePath, Limit: &limit})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListDocuments lists documents.
func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

// DeleteDocument deletes a document and its annotations.
func (s *Store) DeleteDocument(ctx context.Context, delete *DeleteDocument) error {
	s.documentCache.Delete(delete.ID)
	return s.driver.DeleteDocument(ctx, delete)
}
