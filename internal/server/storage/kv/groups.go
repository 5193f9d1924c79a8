package kv

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/onechat/internal/common"
	"github.com/dmitrijs2005/onechat/internal/server/models"
)

type groupValue struct {
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) CreateGroup(ctx context.Context, number, name, owner string) error {
	createdAt := s.clock.Now()
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(groupKey(number)); err == nil {
			return common.ErrorAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		var u userValue
		if err := getJSON(txn, userKey(owner), &u); err != nil {
			return err
		}
		u.Groups = append(u.Groups, number)

		if err := setJSON(txn, groupKey(number), groupValue{Name: name, Members: []string{owner}, CreatedAt: createdAt}); err != nil {
			return err
		}
		return setJSON(txn, userKey(owner), u)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return common.ErrorNotFound
	}
	return err
}

func (s *Store) JoinGroup(ctx context.Context, number, userName string) (bool, error) {
	var joined bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		joined = false

		var g groupValue
		if err := getJSON(txn, groupKey(number), &g); err != nil {
			return err
		}
		var u userValue
		if err := getJSON(txn, userKey(userName), &u); err != nil {
			return err
		}
		if slices.Contains(g.Members, userName) {
			return nil
		}

		g.Members = append(g.Members, userName)
		if !slices.Contains(u.Groups, number) {
			u.Groups = append(u.Groups, number)
		}
		if err := setJSON(txn, groupKey(number), g); err != nil {
			return err
		}
		joined = true
		return setJSON(txn, userKey(userName), u)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, common.ErrorNotFound
	}
	if err != nil {
		return false, err
	}
	return joined, nil
}

func (s *Store) GetGroup(ctx context.Context, number string) (*models.Group, error) {
	var g groupValue
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, groupKey(number), &g)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.Group{Number: number, Name: g.Name, Members: g.Members, CreatedAt: g.CreatedAt.UTC()}, nil
}

func (s *Store) groupNumbers() ([]string, error) {
	var out []string
	prefix := []byte("group:")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return out, err
}
