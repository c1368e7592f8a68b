package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/timextag/store"
)

func (d *DB) UpsertDocument(ctx context.Context, upsert *store.Document) (*store.Document, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO document (id, name, source_path, content_type, length, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			source_path = excluded.source_path,
			content_type = excluded.content_type,
			length = excluded.length,
			updated_ts = excluded.updated_ts
		RETURNING id, name, source_path, content_type, length, created_ts, updated_ts`

	result := &store.Document{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.ID, upsert.Name, upsert.SourcePath, upsert.ContentType, upsert.Length, now, now,
	).Scan(
		&result.ID,
		&result.Name,
		&result.SourcePath,
		&result.ContentType,
		&result.Length,
		&result.CreatedTs,
		&result.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}
	return result, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SourcePath; v != nil {
		where, args = append(where, "source_path = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, name, source_path, content_type, length, created_ts, updated_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		doc := &store.Document{}
		if err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.SourcePath,
			&doc.ContentType,
			&doc.Length,
			&doc.CreatedTs,
			&doc.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		list = append(list, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteDocument(ctx context.Context, delete *store.DeleteDocument) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM annotation WHERE document_id = `+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete document annotations: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM document WHERE id = `+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
