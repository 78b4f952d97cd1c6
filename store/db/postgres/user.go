package postgres

import (
	"context"
	"fmt"
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

	stmt := `INSERT INTO "user" (username, nickname, email, row_status, created_ts, updated_ts)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `, ` + placeholder(4) + `, ` + placeholder(5) + `, ` + placeholder(6) + `)
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
	set, args := []string{}, []any{}
	appendSet := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = %s", column, placeholder(len(args))))
	}
	appendSet("updated_ts", time.Now().Unix())
	if v := update.Username; v != nil {
		appendSet("username", *v)
	}
	if v := update.Nickname; v != nil {
		appendSet("nickname", *v)
	}
	if v := update.Email; v != nil {
		appendSet("email", *v)
	}
	if v := update.RowStatus; v != nil {
		appendSet("row_status", string(*v))
	}
	args = append(args, update.ID)

	stmt := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
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
	where, args := []string{"TRUE"}, []any{}
	appendWhere := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = %s", column, placeholder(len(args))))
	}
	if find != nil {
		if v := find.ID; v != nil {
			appendWhere("id", *v)
		}
		if v := find.Username; v != nil {
			appendWhere("username", *v)
		}
		if v := find.RowStatus; v != nil {
			appendWhere("row_status", string(*v))
		}
	}

	query := `SELECT id, username, nickname, email, row_status, created_ts, updated_ts
		FROM "user" WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
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
	if _, err := d.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = `+placeholder(1), delete.ID); err != nil {
		return errors.Wrapf(err, "failed to delete user %d", delete.ID)
	}
	return nil
}
