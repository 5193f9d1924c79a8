package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry of a group log. SentAt is assigned by the store when
// the message is appended and is always UTC.
type Message struct {
	ID     uuid.UUID
	Group  string
	Sender string
	Body   string
	SentAt time.Time
}
