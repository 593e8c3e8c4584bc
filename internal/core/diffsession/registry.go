package diffsession

import (
	"errors"
	"sort"

	"github.com/colonyops/redline/pkg/kv"
)

// ErrNotFound is returned when no session is registered under an ID.
var ErrNotFound = errors.New("diff session not found")

// Registry owns every live session of one document. Callers get copies;
// mutation goes through Update.
type Registry struct {
	sessions *kv.Store[string, *Session]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: kv.New[string, *Session]()}
}

// Add registers s, replacing any session with the same ID.
func (r *Registry) Add(s *Session) {
	cp := *s
	r.sessions.Set(s.ID, &cp)
}

// Get returns a copy of the session.
func (r *Registry) Get(id string) (Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

// Update applies fn to a copy of the session and stores the copy only when
// fn succeeds.
func (r *Registry) Update(id string, fn func(s *Session) error) (Session, error) {
	s, ok, err := r.sessions.Update(id, func(cur *Session) (*Session, error) {
		cp := *cur
		if err := fn(&cp); err != nil {
			return cur, err
		}
		return &cp, nil
	})
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, err
}

// Remove discards the session.
func (r *Registry) Remove(id string) {
	r.sessions.Delete(id)
}

// List returns copies of all sessions, oldest first.
func (r *Registry) List() []Session {
	all := r.sessions.Values()
	out := make([]Session, 0, len(all))
	for _, s := range all {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int { return r.sessions.Len() }
