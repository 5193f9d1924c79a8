package kv

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

type sessionValue struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

func (s *Store) PutSession(ctx context.Context, session models.Session) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(sessionTokenKey(session.Token))
		switch {
		case err == nil:
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != session.UserName {
				return common.ErrorAlreadyExists
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		var prev sessionValue
		err = getJSON(txn, sessionUserKey(session.UserName), &prev)
		switch {
		case err == nil:
			if err := txn.Delete(sessionTokenKey(prev.Token)); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := setJSON(txn, sessionUserKey(session.UserName), sessionValue{Token: session.Token, IssuedAt: session.IssuedAt}); err != nil {
			return err
		}
		return txn.Set(sessionTokenKey(session.Token), []byte(session.UserName))
	})
}

func (s *Store) FindSession(ctx context.Context, token string) (*models.Session, error) {
	var sess *models.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionTokenKey(token))
		if err != nil {
			return err
		}
		owner, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		var v sessionValue
		if err := getJSON(txn, sessionUserKey(string(owner)), &v); err != nil {
			return err
		}
		if v.Token != token {
			return badger.ErrKeyNotFound
		}
		sess = &models.Session{UserName: string(owner), Token: v.Token, IssuedAt: v.IssuedAt.UTC()}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, userName string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		var prev sessionValue
		err := getJSON(txn, sessionUserKey(userName), &prev)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(sessionTokenKey(prev.Token)); err != nil {
			return err
		}
		return txn.Delete(sessionUserKey(userName))
	})
}
