package models

import "time"

// Session binds the single live token of a user.
type Session struct {
	UserName string
	Token    string
	IssuedAt time.Time
}
