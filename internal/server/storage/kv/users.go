package kv

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

type userValue struct {
	Password  string    `json:"password"`
	Name      string    `json:"name"`
	Groups    []string  `json:"groups"`
	CreatedAt time.Time `json:"created_at"`
}

func (v userValue) model(name string) *models.User {
	groups := v.Groups
	if groups == nil {
		groups = []string{}
	}
	return &models.User{UserName: name, Password: v.Password, Name: v.Name, Groups: groups, CreatedAt: v.CreatedAt.UTC()}
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		key := userKey(user.UserName)
		if _, err := txn.Get(key); err == nil {
			return common.ErrorAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, userValue{
			Password:  user.Password,
			Name:      user.Name,
			Groups:    user.Groups,
			CreatedAt: createdAt,
		})
	})
}

func (s *Store) GetUser(ctx context.Context, userName string) (*models.User, error) {
	var v userValue
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(userName), &v)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return v.model(userName), nil
}

func (s *Store) RenameUser(ctx context.Context, userName, name string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		var v userValue
		if err := getJSON(txn, userKey(userName), &v); err != nil {
			return err
		}
		v.Name = name
		return setJSON(txn, userKey(userName), v)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return common.ErrorNotFound
	}
	return err
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("user:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
