package models

// Snapshot is a consistent copy of every collection, used by backends that
// persist the whole state at once and by tests comparing states.
type Snapshot struct {
	Users    map[string]User
	Groups   map[string]Group
	Messages map[string][]Message
	Sessions map[string]Session
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Users:    make(map[string]User),
		Groups:   make(map[string]Group),
		Messages: make(map[string][]Message),
		Sessions: make(map[string]Session),
	}
}
