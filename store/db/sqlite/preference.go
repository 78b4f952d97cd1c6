package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/userctx/store"
)

func (d *DB) UpsertPreference(ctx context.Context, upsert *store.UpsertPreference) (*store.PreferenceEntry, error) {
	now := time.Now().Unix()

	stmt := `INSERT INTO user_preference (user_id, category, key, value, value_type, description, is_system, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category, key) DO UPDATE SET
			value = EXCLUDED.value,
			value_type = EXCLUDED.value_type,
			description = EXCLUDED.description,
			is_system = EXCLUDED.is_system,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, user_id, category, key, value, value_type, description, is_system, updated_ts`

	entry := &store.PreferenceEntry{}
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID, upsert.Category, upsert.Key, upsert.Value,
		string(upsert.ValueType), upsert.Description, upsert.IsSystem, now,
	).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Category,
		&entry.Key,
		&entry.Value,
		&entry.ValueType,
		&entry.Description,
		&entry.IsSystem,
		&entry.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert preference")
	}

	return entry, nil
}

func (d *DB) ListPreferences(ctx context.Context, find *store.FindPreference) ([]*store.PreferenceEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if v := find.UserID; v != nil {
			where, args = append(where, "user_id = ?"), append(args, *v)
		}
		if v := find.Category; v != nil {
			where, args = append(where, "category = ?"), append(args, *v)
		}
		if v := find.Key; v != nil {
			where, args = append(where, "key = ?"), append(args, *v)
		}
	}

	query := `SELECT id, user_id, category, key, value, value_type, description, is_system, updated_ts
		FROM user_preference WHERE ` + strings.Join(where, " AND ") + ` ORDER BY category, key`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list preferences")
	}
	defer rows.Close()

	list := []*store.PreferenceEntry{}
	for rows.Next() {
		entry := &store.PreferenceEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Category,
			&entry.Key,
			&entry.Value,
			&entry.ValueType,
			&entry.Description,
			&entry.IsSystem,
			&entry.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan preference")
		}
		list = append(list, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate preferences")
	}

	return list, nil
}

func (d *DB) DeletePreference(ctx context.Context, delete *store.DeletePreference) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		"DELETE FROM user_preference WHERE user_id = ? AND category = ? AND key = ?",
		delete.UserID, delete.Category, delete.Key,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete preference")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}
