package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/timextag/store"
)

func (d *DB) CreateAnnotation(ctx context.Context, create *store.Annotation) (*store.Annotation, error) {
	features, err := store.MarshalFeatures(create.Features)
	if err != nil {
		return nil, err
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `INSERT INTO annotation (document_id, set_name, type, start_offset, end_offset, features, created_ts)
		VALUES (` + placeholders(5) + `, ` + placeholder(6) + `::jsonb, ` + placeholder(7) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID, create.SetName, create.Type, create.StartOffset, create.EndOffset, features, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create annotation: %w", err)
	}
	return create, nil
}

func (d *DB) ListAnnotations(ctx context.Context, find *store.FindAnnotation) ([]*store.Annotation, error) {
	where, args := []string{"document_id = " + placeholder(1)}, []any{find.DocumentID}

	if v := find.SetName; v != nil {
		where, args = append(where, "set_name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, document_id, set_name, type, start_offset, end_offset, features, created_ts
		FROM annotation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_offset ASC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer rows.Close()

	list := []*store.Annotation{}
	for rows.Next() {
		a := &store.Annotation{}
		var features []byte
		if err := rows.Scan(
			&a.ID,
			&a.DocumentID,
			&a.SetName,
			&a.Type,
			&a.StartOffset,
			&a.EndOffset,
			&features,
			&a.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		if a.Features, err = store.UnmarshalFeatures(features); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteAnnotations(ctx context.Context, delete *store.DeleteAnnotation) error {
	where, args := []string{"document_id = " + placeholder(1)}, []any{delete.DocumentID}
	if v := delete.SetName; v != nil {
		where, args = append(where, "set_name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if _, err := d.db.ExecContext(ctx, `DELETE FROM annotation WHERE `+strings.Join(where, " AND "), args...); err != nil {
		return fmt.Errorf("failed to delete annotations: %w", err)
	}
	return nil
}
