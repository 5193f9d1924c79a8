// Package models defines the server-side records shared by every storage
// backend.
package models

import "time"

// User is a registered account. Groups lists the numbers of the groups the
// user created or joined, in that order.
type User struct {
	UserName  string
	Password  string
	Name      string
	Groups    []string
	CreatedAt time.Time
}

// Clone returns a deep copy so callers never share the Groups slice with a store.
func (u User) Clone() User {
	u.Groups = append([]string(nil), u.Groups...)
	return u
}
