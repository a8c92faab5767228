package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zidesign/catalog/types"
)

var (
	admin = types.User{ID: "admin-1", Role: types.RoleAdmin}
	user  = types.User{ID: "user-1", Role: types.RoleUser}
)

func TestInitialStatus(t *testing.T) {
	status, err := InitialStatus(types.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, status)

	status, err = InitialStatus(types.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, status)

	_, err = InitialStatus(types.RoleUnknown)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestTransitionMatrix(t *testing.T) {
	statuses := []types.Status{types.StatusPending, types.StatusApproved, types.StatusRejected}

	for _, actor := range []types.User{admin, user, {ID: "nobody"}} {
		for _, from := range statuses {
			for _, to := range statuses {
				err := Transition(actor, from, to)
				allowed := actor.Role == types.RoleAdmin &&
					from == types.StatusPending &&
					(to == types.StatusApproved || to == types.StatusRejected)

				name := actor.Role.String() + ":" + from.String() + "->" + to.String()
				if allowed {
					assert.NoError(t, err, name)
					continue
				}
				require.Error(t, err, name)
				if actor.Role != types.RoleAdmin {
					assert.ErrorIs(t, err, types.ErrUnauthorized, name)
				} else {
					assert.ErrorIs(t, err, types.ErrInvalidTransition, name)
				}
			}
		}
	}
}

func TestTransitionRejectsUnknownTarget(t *testing.T) {
	err := Transition(admin, types.StatusPending, types.StatusUnknown)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestAuthorizeDelete(t *testing.T) {
	owned := types.Work{ID: "w1", AuthorID: user.ID, Status: types.StatusRejected}
	foreign := types.Work{ID: "w2", AuthorID: "someone-else", Status: types.StatusApproved}

	assert.NoError(t, AuthorizeDelete(user, owned))
	assert.NoError(t, AuthorizeDelete(admin, owned))
	assert.NoError(t, AuthorizeDelete(admin, foreign))
	assert.ErrorIs(t, AuthorizeDelete(user, foreign), types.ErrUnauthorized)
	assert.ErrorIs(t, AuthorizeDelete(types.User{ID: user.ID}, owned), types.ErrUnauthorized)
}
