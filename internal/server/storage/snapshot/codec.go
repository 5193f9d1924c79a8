// Package snapshot encodes whole-state snapshots as JSON and stores them in a
// local file or an S3 object. The layout is the one used by the existing
// onechat.adithf data files:
//
//	{
//	  "users":    {"<username>": {"password": "...", "name": "...", "groups": ["<number>"]}},
//	  "groups":   {"<number>": {"name": "...", "members": ["<username>"]}},
//	  "messages": {"<number>": [{"sender": "...", "message": "...", "time": "<ISO-8601>"}]},
//	  "sessions": {"<username>": "<token>"}
//	}
//
// Fields added here (id, created_at and the top-level session_issued_at map
// of username to ISO-8601 instant) are optional on read.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/onechat/internal/server/models"
	"github.com/google/uuid"
)

type document struct {
	Users    map[string]userDoc      `json:"users"`
	Groups   map[string]groupDoc     `json:"groups"`
	Messages map[string][]messageDoc `json:"messages"`
	Sessions map[string]string       `json:"sessions"`
	IssuedAt map[string]string       `json:"session_issued_at,omitempty"`
}

type userDoc struct {
	Password  string   `json:"password"`
	Name      string   `json:"name"`
	Groups    []string `json:"groups"`
	CreatedAt string   `json:"created_at,omitempty"`
}

type groupDoc struct {
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"created_at,omitempty"`
}

type messageDoc struct {
	ID      string `json:"id,omitempty"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// naive ISO timestamps, as written by datetime.isoformat() without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime reads an ISO-8601 instant. Values without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseTime(s)
}

// Encode renders snap in the data file layout.
func Encode(snap *models.Snapshot) ([]byte, error) {
	doc := document{
		Users:    make(map[string]userDoc, len(snap.Users)),
		Groups:   make(map[string]groupDoc, len(snap.Groups)),
		Messages: make(map[string][]messageDoc, len(snap.Messages)),
		Sessions: make(map[string]string, len(snap.Sessions)),
		IssuedAt: make(map[string]string, len(snap.Sessions)),
	}

	for name, u := range snap.Users {
		groups := u.Groups
		if groups == nil {
			groups = []string{}
		}
		doc.Users[name] = userDoc{Password: u.Password, Name: u.Name, Groups: groups, CreatedAt: formatTime(u.CreatedAt)}
	}
	for number, g := range snap.Groups {
		members := g.Members
		if members == nil {
			members = []string{}
		}
		doc.Groups[number] = groupDoc{Name: g.Name, Members: members, CreatedAt: formatTime(g.CreatedAt)}
		doc.Messages[number] = []messageDoc{}
	}
	for number, msgs := range snap.Messages {
		out := make([]messageDoc, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, messageDoc{
				ID:      m.ID.String(),
				Sender:  m.Sender,
				Message: m.Body,
				Time:    formatTime(m.SentAt),
			})
		}
		doc.Messages[number] = out
	}
	for name, sess := range snap.Sessions {
		doc.Sessions[name] = sess.Token
		if !sess.IssuedAt.IsZero() {
			doc.IssuedAt[name] = formatTime(sess.IssuedAt)
		}
	}

	return json.MarshalIndent(doc, "", "    ")
}

// Decode parses a data file. An empty object (the placeholder written before
// the first save) decodes to an empty snapshot. Messages without an id get a
// fresh one.
func Decode(data []byte) (*models.Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}

	snap := models.NewSnapshot()
	for name, u := range doc.Users {
		created, err := parseOptionalTime(u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", name, err)
		}
		snap.Users[name] = models.User{
			UserName:  name,
			Password:  u.Password,
			Name:      u.Name,
			Groups:    u.Groups,
			CreatedAt: created,
		}
	}
	for number, g := range doc.Groups {
		created, err := parseOptionalTime(g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", number, err)
		}
		snap.Groups[number] = models.Group{Number: number, Name: g.Name, Members: g.Members, CreatedAt: created}
	}
	for number, msgs := range doc.Messages {
		out := make([]models.Message, 0, len(msgs))
		for i, m := range msgs {
			sentAt, err := ParseTime(m.Time)
			if err != nil {
				return nil, fmt.Errorf("group %q message %d: %w", number, i, err)
			}
			id, err := uuid.Parse(m.ID)
			if err != nil {
				id = uuid.New()
			}
			out = append(out, models.Message{ID: id, Group: number, Sender: m.Sender, Body: m.Message, SentAt: sentAt})
		}
		snap.Messages[number] = out
	}
	for name, token := range doc.Sessions {
		issued, err := parseOptionalTime(doc.IssuedAt[name])
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", name, err)
		}
		snap.Sessions[name] = models.Session{UserName: name, Token: token, IssuedAt: issued}
	}

	return snap, nil
}
