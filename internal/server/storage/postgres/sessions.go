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

func (s *Store) PutSession(ctx context.Context, session models.Session) error {
	query :=
		`INSERT INTO sessions (username, token, issued_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO UPDATE
		 SET token = EXCLUDED.token, issued_at = EXCLUDED.issued_at
		 `

	_, err := s.db.ExecContext(ctx, query, session.UserName, session.Token, session.IssuedAt)
	if err != nil {
		switch {
		case dbx.HasCode(err, dbx.CodeUniqueViolation):
			return common.ErrorAlreadyExists
		case dbx.HasCode(err, dbx.CodeForeignKeyViolation):
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, token string) (*models.Session, error) {
	query :=
		`SELECT username, token, issued_at FROM sessions
		 WHERE token = $1
		 `

	sess := &models.Session{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(&sess.UserName, &sess.Token, &sess.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	sess.IssuedAt = sess.IssuedAt.UTC()
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, userName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE username = $1`, userName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
