package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/userctx/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	now := time.Now().Unix()
	rowStatus := create.RowStatus
	if rowStatus == "" {
		rowStatus = store.Normal
	}

	stmt := `INSERT INTO user (username, nickname, email, row_status, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	user := &store.User{
		Username:  create.Username,
		Nickname:  create.Nickname,
		Email:     create.Email,
		RowStatus: rowStatus,
		CreatedTs: now,
		UpdatedTs: now,
	}
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Username, create.Nickname, create.Email, rowStatus, now, now,
	).Scan(&user.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	return user, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}
	if v := update.Username; v != nil {
		set, args = append(set, "username = ?"), append(args, *v)
	}
	if v := update.Nickname; v != nil {
		set, args = append(set, "nickname = ?"), append(args, *v)
	}
	if v := update.Email; v != nil {
		set, args = append(set, "email = ?"), append(args, *v)
	}
	if v := update.RowStatus; v != nil {
		set, args = append(set, "row_status = ?"), append(args, string(*v))
	}
	args = append(args, update.ID)

	stmt := `UPDATE user SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, username, nickname, email, row_status, created_ts, updated_ts`

	user := &store.User{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Nickname,
		&user.Email,
		&user.RowStatus,
		&user.CreatedTs,
		&user.UpdatedTs,
	); err != nil {
		return nil, errors.Wrapf(err, "failed to update user %d", update.ID)
	}

	return user, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find != nil {
		if v := find.ID; v != nil {
			where, args = append(where, "id = ?"), append(args, *v)
		}
		if v := find.Username; v != nil {
			where, args = append(where, "username = ?"), append(args, *v)
		}
		if v := find.RowStatus; v != nil {
			where, args = append(where, "row_status = ?"), append(args, string(*v))
		}
	}

	query := `SELECT id, username, nickname, email, row_status, created_ts, updated_ts
		FROM user WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		user := &store.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Nickname,
			&user.Email,
			&user.RowStatus,
			&user.CreatedTs,
			&user.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate users")
	}

	return list, nil
}

func (d *DB) DeleteUser(ctx context.Context, delete *store.DeleteUser) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM user WHERE id = ?", delete.ID); err != nil {
		return errors.Wrapf(err, "failed to delete user %d", delete.ID)
	}
	return nil
}
