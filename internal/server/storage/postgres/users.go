package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/dbx"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	query :=
		`INSERT INTO users (username, password, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 `

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	_, err := s.db.ExecContext(ctx, query, user.UserName, user.Password, user.Name, createdAt)
	if err != nil {
		if dbx.HasCode(err, dbx.CodeUniqueViolation) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userName string) (*models.User, error) {
	var user *models.User
	err := s.withTx(ctx, readOnly, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = getUser(ctx, tx, userName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func getUser(ctx context.Context, db dbx.DBTX, userName string) (*models.User, error) {
	query :=
		`SELECT username, password, name, created_at FROM users
		 WHERE username = $1
		 `

	user := &models.User{}
	err := db.QueryRowContext(ctx, query, userName).Scan(&user.UserName, &user.Password, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()

	groups, err := queryStrings(ctx, db,
		`SELECT group_number FROM group_members
		 WHERE username = $1
		 ORDER BY seq
		 `, userName)
	if err != nil {
		return nil, err
	}
	user.Groups = groups
	return user, nil
}

func (s *Store) RenameUser(ctx context.Context, userName, name string) error {
	query :=
		`UPDATE users SET name = $2
		 WHERE username = $1
		 `

	res, err := s.db.ExecContext(ctx, query, userName, name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func queryStrings(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
