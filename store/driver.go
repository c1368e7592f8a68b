package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	// Document model related methods.
	UpsertDocument(ctx context.Context, upsert *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	DeleteDocument(ctx context.Context, delete *DeleteDocument) error

	// Annotation model related methods.
	// ListAnnotations returns annotations in document order (start offset, then insertion).
	CreateAnnotation(ctx context.Context, create *Annotation) (*Annotation, error)
	ListAnnotations(ctx context.Context, find *FindAnnotation) ([]*Annotation, error)
	DeleteAnnotations(ctx context.Context, delete *DeleteAnnotation) error
}
