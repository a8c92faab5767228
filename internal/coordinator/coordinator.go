// Package coordinator turns user intents into repository calls and folds
// the results into the local projection. It never retries and never
// rolls back: a failed call leaves the projection untouched.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/internal/projection"
	"github.com/zidesign/catalog/types"
)

// Repository is the authoritative work CRUD boundary.
type Repository interface {
	List(ctx context.Context, filter types.WorkFilter) ([]types.Work, error)
	Create(ctx context.Context, input types.WorkInput, actor types.User) (types.Work, error)
	SetStatus(ctx context.Context, id string, status types.Status, actor types.User) (types.Work, error)
	Delete(ctx context.Context, id string, actor types.User) error
}

// Identity resolves and edits accounts.
type Identity interface {
	Register(ctx context.Context, in types.RegisterInput) (types.Session, error)
	Login(ctx context.Context, in types.LoginInput) (types.Session, error)
	UpdateProfile(ctx context.Context, token, userID string, update types.ProfileUpdate) (types.User, error)
}

type Coordinator struct {
	repo     Repository
	identity Identity
	store    *projection.Store
	log      logrus.FieldLogger

	// seq numbers filter requests; only the latest issued may land.
	seq     atomic.Uint64
	applyMu sync.Mutex
}

func New(repo Repository, identity Identity, store *projection.Store, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{repo: repo, identity: identity, store: store, log: log}
}

// Store returns the projection the coordinator writes to.
func (c *Coordinator) Store() *projection.Store {
	return c.store
}

// ChangeFilter fetches the works matching filter and replaces the view.
// When a newer ChangeFilter was issued while this one was in flight, the
// response is discarded and applied is false.
func (c *Coordinator) ChangeFilter(ctx context.Context, filter types.WorkFilter) (applied bool, err error) {
	seq := c.seq.Add(1)
	works, err := c.repo.List(ctx, filter)

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if c.seq.Load() != seq {
		c.log.WithField("seq", seq).Debug("discarding stale filter response")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load works: %w", err)
	}
	if err := c.store.ReplaceWorks(ctx, works); err != nil {
		return false, err
	}
	return true, nil
}

// Submit creates a work as the signed-in user and appends it to the view.
func (c *Coordinator) Submit(ctx context.Context, input types.WorkInput) (types.Work, error) {
	actor, err := c.actor()
	if err != nil {
		return types.Work{}, err
	}
	work, err := c.repo.Create(ctx, input, actor)
	if err != nil {
		return types.Work{}, fmt.Errorf("submit work: %w", err)
	}
	return work, c.store.ApplyCreated(ctx, work)
}

func (c *Coordinator) Approve(ctx context.Context, id string) (types.Work, error) {
	return c.Moderate(ctx, id, types.StatusApproved)
}

func (c *Coordinator) Reject(ctx context.Context, id string) (types.Work, error) {
	return c.Moderate(ctx, id, types.StatusRejected)
}

// Moderate sets the status of a work and patches the view with the
// canonical record. A work no longer in the view is left absent.
func (c *Coordinator) Moderate(ctx context.Context, id string, status types.Status) (types.Work, error) {
	actor, err := c.actor()
	if err != nil {
		return types.Work{}, err
	}
	work, err := c.repo.SetStatus(ctx, id, status, actor)
	if err != nil {
		return types.Work{}, fmt.Errorf("moderate work %s: %w", id, err)
	}
	if _, err := c.store.ApplyUpdated(ctx, id, types.PatchFrom(work)); err != nil {
		return work, err
	}
	return work, nil
}

// Delete removes a work remotely, then from the view.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	actor, err := c.actor()
	if err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, id, actor); err != nil {
		return fmt.Errorf("delete work %s: %w", id, err)
	}
	_, err = c.store.ApplyDeleted(ctx, id)
	return err
}

// ToggleFavorite is local only and needs no signed-in user.
func (c *Coordinator) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	return c.store.ToggleFavorite(ctx, id)
}

func (c *Coordinator) Register(ctx context.Context, in types.RegisterInput) (types.User, error) {
	session, err := c.identity.Register(ctx, in)
	if err != nil {
		return types.User{}, fmt.Errorf("register: %w", err)
	}
	return session.User, c.store.SetUser(ctx, session.User, session.Token)
}

func (c *Coordinator) Login(ctx context.Context, in types.LoginInput) (types.User, error) {
	session, err := c.identity.Login(ctx, in)
	if err != nil {
		return types.User{}, fmt.Errorf("login: %w", err)
	}
	return session.User, c.store.SetUser(ctx, session.User, session.Token)
}

// UpdateProfile edits the signed-in user's own profile.
func (c *Coordinator) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (types.User, error) {
	actor, err := c.actor()
	if err != nil {
		return types.User{}, err
	}
	user, err := c.identity.UpdateProfile(ctx, c.store.Token(), actor.ID, update)
	if err != nil {
		return types.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, c.store.UpdateUser(ctx, user)
}

func (c *Coordinator) Logout(ctx context.Context) error {
	return c.store.Logout(ctx)
}

func (c *Coordinator) actor() (types.User, error) {
	user, ok := c.store.User()
	if !ok {
		return types.User{}, fmt.Errorf("%w: sign in first", types.ErrUnauthorized)
	}
	return user, nil
}
