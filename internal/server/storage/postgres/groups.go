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

func (s *Store) CreateGroup(ctx context.Context, number, name, owner string) error {
	createdAt := s.clock.Now()
	return s.withTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (number, name, created_at)
			 VALUES ($1, $2, $3)
			 `, number, name, createdAt)
		if err != nil {
			if dbx.HasCode(err, dbx.CodeUniqueViolation) {
				return common.ErrorAlreadyExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		return addMember(ctx, tx, number, owner, nil)
	})
}

func (s *Store) JoinGroup(ctx context.Context, number, userName string) (bool, error) {
	var joined bool
	err := s.withTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockGroup(ctx, tx, number); err != nil {
			return err
		}
		return addMember(ctx, tx, number, userName, &joined)
	})
	if err != nil {
		return false, err
	}
	return joined, nil
}

// addMember inserts the membership row; an existing row is left alone and
// reported through joined when it is non-nil.
func addMember(ctx context.Context, tx dbx.DBTX, number, userName string, joined *bool) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_number, username)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 `, number, userName)
	if err != nil {
		if dbx.HasCode(err, dbx.CodeForeignKeyViolation) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	if joined != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		*joined = n > 0
	}
	return nil
}

// lockGroup takes the group row lock that serializes membership changes and
// message appends within one group.
func lockGroup(ctx context.Context, tx dbx.DBTX, number string) error {
	var got string
	err := tx.QueryRowContext(ctx,
		`SELECT number FROM groups
		 WHERE number = $1
		 FOR UPDATE
		 `, number).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func groupExists(ctx context.Context, tx dbx.DBTX, number string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM groups WHERE number = $1`, number).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, number string) (*models.Group, error) {
	group := &models.Group{Number: number}
	err := s.withTx(ctx, readOnly, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`SELECT name, created_at FROM groups
			 WHERE number = $1
			 `, number).Scan(&group.Name, &group.CreatedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		members, err := queryStrings(ctx, tx,
			`SELECT username FROM group_members
			 WHERE group_number = $1
			 ORDER BY seq
			 `, number)
		if err != nil {
			return err
		}
		group.Members = members
		return nil
	})
	if err != nil {
		return nil, err
	}
	group.CreatedAt = group.CreatedAt.UTC()
	return group, nil
}
