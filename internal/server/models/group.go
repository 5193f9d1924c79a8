package models

import "time"

// Group is a numbered chat group. Number is chosen by the creator and never
// changes; Members is kept in join order, creator first.
type Group struct {
	Number    string
	Name      string
	Members   []string
	CreatedAt time.Time
}

func (g Group) Clone() Group {
	g.Members = append([]string(nil), g.Members...)
	return g
}

// GroupSummary is the name/number pair shown on a user's profile.
type GroupSummary struct {
	Name   string
	Number string
}
