// Package projection holds the client's local view of the catalog: the
// signed-in user, the last fetched works and the user's favorites. Every
// mutation is written through to a Slot so the view survives restarts.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/zidesign/catalog/types"
)

// State is the persisted record.
type State struct {
	User      *types.User  `json:"user"`
	Token     string       `json:"token,omitempty"`
	Works     []types.Work `json:"works"`
	Favorites []string     `json:"favorites"`
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	slot Slot
	cur  view
}

// view is the in-memory state. Mutations work on a copy and replace cur
// only once the copy encodes.
type view struct {
	user      *types.User
	token     string
	works     []types.Work
	favorites map[string]struct{}
}

func (v view) clone() view {
	out := view{token: v.token, works: slices.Clone(v.works), favorites: make(map[string]struct{}, len(v.favorites))}
	if v.user != nil {
		u := *v.user
		out.user = &u
	}
	if out.works == nil {
		out.works = []types.Work{}
	}
	for id := range v.favorites {
		out.favorites[id] = struct{}{}
	}
	return out
}

func (v view) state() State {
	state := State{
		Token:     v.token,
		Works:     slices.Clone(v.works),
		Favorites: v.sortedFavorites(),
	}
	if v.user != nil {
		u := *v.user
		state.User = &u
	}
	if state.Works == nil {
		state.Works = []types.Work{}
	}
	return state
}

func (v view) sortedFavorites() []string {
	ids := make([]string, 0, len(v.favorites))
	for id := range v.favorites {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (v view) index(id string) int {
	return slices.IndexFunc(v.works, func(w types.Work) bool { return w.ID == id })
}

// Open reads the slot and returns a store seeded with its content. An
// empty or unreadable record starts a fresh projection.
func Open(ctx context.Context, slot Slot) (*Store, error) {
	s := &Store{slot: slot, cur: view{works: []types.Work{}, favorites: make(map[string]struct{})}}

	data, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projection: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return s, nil
	}
	s.cur.user = state.User
	s.cur.token = state.Token
	if state.Works != nil {
		s.cur.works = state.Works
	}
	for _, id := range state.Favorites {
		s.cur.favorites[id] = struct{}{}
	}
	return s, nil
}

// Close releases the slot. The store must not be used afterwards.
func (s *Store) Close() error {
	return s.slot.Close()
}

// SetUser replaces the signed-in identity and its token.
func (s *Store) SetUser(ctx context.Context, user types.User, token string) error {
	return s.mutate(ctx, func(v *view) bool {
		v.user = &user
		v.token = token
		return true
	})
}

// UpdateUser replaces the identity and keeps the current token.
func (s *Store) UpdateUser(ctx context.Context, user types.User) error {
	return s.mutate(ctx, func(v *view) bool {
		v.user = &user
		return true
	})
}

// Logout clears the identity and token. Works and favorites are kept.
func (s *Store) Logout(ctx context.Context) error {
	return s.mutate(ctx, func(v *view) bool {
		v.user = nil
		v.token = ""
		return true
	})
}

// ApplyCreated appends a newly created work.
func (s *Store) ApplyCreated(ctx context.Context, work types.Work) error {
	return s.mutate(ctx, func(v *view) bool {
		v.works = append(v.works, work)
		return true
	})
}

// ApplyUpdated patches the work with the given id in place. It reports
// false and changes nothing when the id is not in the view.
func (s *Store) ApplyUpdated(ctx context.Context, id string, patch types.WorkPatch) (bool, error) {
	found := false
	err := s.mutate(ctx, func(v *view) bool {
		i := v.index(id)
		if i < 0 {
			return false
		}
		v.works[i] = patch.Apply(v.works[i])
		found = true
		return true
	})
	if errors.Is(err, types.ErrValidation) {
		return false, err
	}
	return found, err
}

// ApplyDeleted removes the work with the given id, if present.
func (s *Store) ApplyDeleted(ctx context.Context, id string) (bool, error) {
	found := false
	err := s.mutate(ctx, func(v *view) bool {
		i := v.index(id)
		if i < 0 {
			return false
		}
		v.works = slices.Delete(v.works, i, i+1)
		found = true
		return true
	})
	if errors.Is(err, types.ErrValidation) {
		return false, err
	}
	return found, err
}

// ReplaceWorks swaps the whole view, as after a filter change.
func (s *Store) ReplaceWorks(ctx context.Context, works []types.Work) error {
	return s.mutate(ctx, func(v *view) bool {
		v.works = slices.Clone(works)
		if v.works == nil {
			v.works = []types.Work{}
		}
		return true
	})
}

// ToggleFavorite flips membership of id and returns the new membership.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	on := false
	err := s.mutate(ctx, func(v *view) bool {
		if _, fav := v.favorites[id]; fav {
			delete(v.favorites, id)
		} else {
			v.favorites[id] = struct{}{}
			on = true
		}
		return true
	})
	if errors.Is(err, types.ErrValidation) {
		return s.IsFavorite(id), err
	}
	return on, err
}

// User returns the signed-in user.
func (s *Store) User() (types.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur.user == nil {
		return types.User{}, false
	}
	return *s.cur.user, true
}

// Token returns the bearer token of the signed-in user, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.token
}

// Works returns a copy of the current view in order.
func (s *Store) Works() []types.Work {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cur.works)
}

// Work looks a work up in the current view.
func (s *Store) Work(id string) (types.Work, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.cur.index(id); i >= 0 {
		return s.cur.works[i], true
	}
	return types.Work{}, false
}

func (s *Store) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cur.favorites[id]
	return ok
}

// Favorites returns the favorite ids, sorted.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.sortedFavorites()
}

// Snapshot returns the state as it would be persisted.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.state()
}

// mutate applies fn to a copy of the view. fn returns false when it
// changed nothing. A copy that cannot be encoded is dropped with
// ErrValidation; otherwise it replaces the view and is saved. A failed
// save keeps the new view in memory.
func (s *Store) mutate(ctx context.Context, fn func(v *view) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.clone()
	if !fn(&next) {
		return nil
	}
	data, err := json.Marshal(next.state())
	if err != nil {
		return fmt.Errorf("%w: encode projection: %v", types.ErrValidation, err)
	}
	s.cur = next
	if err := s.slot.Save(ctx, data); err != nil {
		return fmt.Errorf("save projection: %w", err)
	}
	return nil
}
