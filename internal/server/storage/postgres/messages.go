package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/onechat/internal/dbx"
	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/google/uuid"
)

func (s *Store) AppendMessage(ctx context.Context, group, sender, body string) (*models.Message, error) {
	var msg models.Message
	err := s.withTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockGroup(ctx, tx, group); err != nil {
			return err
		}

		// Stamped under the row lock so SentAt follows commit order.
		msg = models.Message{
			ID:     uuid.New(),
			Group:  group,
			Sender: sender,
			Body:   body,
			SentAt: s.clock.Now(),
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (uid, group_number, sender, body, sent_at)
			 VALUES ($1, $2, $3, $4, $5)
			 `, msg.ID, msg.Group, msg.Sender, msg.Body, msg.SentAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Store) ListMessages(ctx context.Context, group string) ([]models.Message, error) {
	var out []models.Message
	err := s.withTx(ctx, readOnly, func(ctx context.Context, tx dbx.DBTX) error {
		if err := groupExists(ctx, tx, group); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT uid, sender, body, sent_at FROM messages
			 WHERE group_number = $1
			 ORDER BY id
			 `, group)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		defer rows.Close()

		out = []models.Message{}
		for rows.Next() {
			m := models.Message{Group: group}
			if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.SentAt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			m.SentAt = m.SentAt.UTC()
			out = append(out, m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EvictMessages deletes expired rows in one statement; row-level locks keep
// concurrent appends to other rows unaffected.
func (s *Store) EvictMessages(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}

// newestMessage returns max(sent_at), or the zero time for an empty table.
func (s *Store) newestMessage(ctx context.Context) (time.Time, error) {
	var newest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT max(sent_at) FROM messages`).Scan(&newest); err != nil {
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	if !newest.Valid {
		return time.Time{}, nil
	}
	return newest.Time.UTC(), nil
}
