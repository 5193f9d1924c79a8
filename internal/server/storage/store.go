// Package storage declares the contract every persistence backend satisfies.
// Services depend only on Store; switching between the snapshot, KV and
// relational backends does not change them.
package storage

import (
	"context"
	"time"

	"github.com/dmitrijs2005/onechat/internal/server/models"
)

// Users is the user directory.
type Users interface {
	// CreateUser stores a new user. Returns common.ErrorAlreadyExists when the
	// user name is taken.
	CreateUser(ctx context.Context, user models.User) error

	// GetUser returns a copy of the user or common.ErrorNotFound.
	GetUser(ctx context.Context, userName string) (*models.User, error)

	// RenameUser changes the display name. Returns common.ErrorNotFound for
	// unknown users.
	RenameUser(ctx context.Context, userName, name string) error

	// CountUsers reports how many users exist; used to detect a fresh deployment.
	CountUsers(ctx context.Context) (int, error)
}

// Groups is the group registry. Create and Join update the group members and
// the user's group list as one atomic step.
type Groups interface {
	// CreateGroup registers a group with owner as its first member.
	// Returns common.ErrorAlreadyExists for a taken number and
	// common.ErrorNotFound when the owner does not exist.
	CreateGroup(ctx context.Context, number, name, owner string) error

	// JoinGroup adds userName to the group. Joining twice is a no-op; joined
	// reports whether membership actually changed.
	JoinGroup(ctx context.Context, number, userName string) (joined bool, err error)

	// GetGroup returns a copy of the group or common.ErrorNotFound.
	GetGroup(ctx context.Context, number string) (*models.Group, error)
}

// Sessions is the session store, indexed both by user and by token.
type Sessions interface {
	// PutSession installs the session, replacing (and invalidating) any
	// previous token of the same user.
	PutSession(ctx context.Context, session models.Session) error

	// FindSession resolves a token or returns common.ErrorNotFound.
	FindSession(ctx context.Context, token string) (*models.Session, error)

	// DeleteSession removes the user's session. Deleting a missing session
	// is not an error.
	DeleteSession(ctx context.Context, userName string) error
}

// Messages is the per-group message log.
type Messages interface {
	// AppendMessage stamps the message with the store clock and appends it
	// to the group's log. Returns common.ErrorNotFound for unknown groups.
	AppendMessage(ctx context.Context, group, sender, body string) (*models.Message, error)

	// ListMessages returns the surviving log in append order, or
	// common.ErrorNotFound for unknown groups.
	ListMessages(ctx context.Context, group string) ([]models.Message, error)

	// EvictMessages deletes, across all groups, messages sent strictly before
	// cutoff, and reports how many were removed. Groups are swept one at a
	// time; no store-wide lock is held for the whole pass.
	EvictMessages(ctx context.Context, cutoff time.Time) (int, error)
}

// Store is a complete backend.
type Store interface {
	Users
	Groups
	Sessions
	Messages

	// Flush makes every mutation completed before the call durable. Backends
	// that commit on each operation return nil immediately.
	Flush(ctx context.Context) error

	Close() error
}
