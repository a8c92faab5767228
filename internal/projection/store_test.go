package projection

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidesign/catalog/types"
)

func newFileStore(t *testing.T, dir string) *Store {
	t.Helper()
	slot, err := NewFileSlot(dir, DefaultSlotName)
	require.NoError(t, err)
	s, err := Open(context.Background(), slot)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func work(id string, status types.Status) types.Work {
	return types.Work{
		ID:          id,
		Title:       "work " + id,
		Description: "d",
		Category:    types.CategoryPhotos,
		License:     types.LicensePersonal,
		Tags:        []string{"t"},
		AuthorID:    "u1",
		AuthorName:  "Alice",
		Status:      status,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFavoritesDoubleToggle(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	ctx := context.Background()

	assert.Empty(t, s.Favorites())

	on, err := s.ToggleFavorite(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []string{"w1"}, s.Favorites())
	assert.True(t, s.IsFavorite("w1"))

	on, err = s.ToggleFavorite(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, s.Favorites())
}

func TestApplyMutations(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.ReplaceWorks(ctx, []types.Work{work("a", types.StatusApproved), work("b", types.StatusPending)}))
	require.NoError(t, s.ApplyCreated(ctx, work("c", types.StatusPending)))

	ids := func() []string {
		var out []string
		for _, w := range s.Works() {
			out = append(out, w.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids())

	approved := work("b", types.StatusApproved)
	ok, err := s.ApplyUpdated(ctx, "b", types.PatchFrom(approved))
	require.NoError(t, err)
	assert.True(t, ok)
	got, found := s.Work("b")
	require.True(t, found)
	assert.Equal(t, types.StatusApproved, got.Status)
	assert.Equal(t, []string{"a", "b", "c"}, ids(), "update keeps position")

	ok, err = s.ApplyUpdated(ctx, "zzz", types.PatchFrom(approved))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, s.Works(), 3)

	ok, err = s.ApplyDeleted(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, ids())

	ok, err = s.ApplyDeleted(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReplaceWorks(ctx, nil))
	assert.Empty(t, s.Works())
}

func TestWorksReturnsCopy(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	require.NoError(t, s.ReplaceWorks(context.Background(), []types.Work{work("a", types.StatusApproved)}))

	works := s.Works()
	works[0].Title = "mutated"
	got, _ := s.Work("a")
	assert.Equal(t, "work a", got.Title)
}

func TestLogoutKeepsWorksAndFavorites(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.SetUser(ctx, types.User{ID: "u1", Email: "a@x", Name: "A", Role: types.RoleUser}, "tok"))
	require.NoError(t, s.ReplaceWorks(ctx, []types.Work{work("a", types.StatusApproved)}))
	_, err := s.ToggleFavorite(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	_, ok := s.User()
	assert.False(t, ok)
	assert.Empty(t, s.Token())
	assert.Len(t, s.Works(), 1)
	assert.Equal(t, []string{"a"}, s.Favorites())
}

func TestProjectionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newFileStore(t, dir)
	user := types.User{ID: "u1", Email: "a@x", Name: "A", Role: types.RoleAdmin}
	require.NoError(t, first.SetUser(ctx, user, "tok"))
	require.NoError(t, first.ReplaceWorks(ctx, []types.Work{work("a", types.StatusApproved), work("b", types.StatusPending)}))
	_, err := first.ToggleFavorite(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newFileStore(t, dir)
	got, ok := second.User()
	require.True(t, ok)
	assert.Equal(t, types.RoleAdmin, got.Role)
	assert.Equal(t, "tok", second.Token())
	require.Len(t, second.Works(), 2)
	assert.Equal(t, types.StatusPending, second.Works()[1].Status)
	assert.Equal(t, []string{"b"}, second.Favorites())
}

func TestSlotRecordShape(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(dir, "")
	require.NoError(t, err)
	s, err := Open(context.Background(), slot)
	require.NoError(t, err)
	_, err = s.ToggleFavorite(context.Background(), "w1")
	require.NoError(t, err)

	data, err := os.ReadFile(slot.Path())
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "user")
	assert.Contains(t, raw, "works")
	assert.Contains(t, raw, "favorites")
	assert.JSONEq(t, `["w1"]`, string(raw["favorites"]))
	assert.Contains(t, slot.Path(), DefaultSlotName+".json")
}

func TestCorruptSlotStartsFresh(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(dir, "broken")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(slot.Path(), []byte("{not json"), 0o600))

	s, err := Open(context.Background(), slot)
	require.NoError(t, err)
	assert.Empty(t, s.Works())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestInvalidSlotName(t *testing.T) {
	_, err := NewFileSlot(t.TempDir(), "../escape")
	assert.Error(t, err)
}

type failingSlot struct{ memorySlot }

func (f *failingSlot) Save(context.Context, []byte) error { return errors.New("disk full") }

type memorySlot struct {
	mu   sync.Mutex
	data []byte
}

func (m *memorySlot) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *memorySlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memorySlot) Close() error { return nil }

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	s, err := Open(context.Background(), &failingSlot{})
	require.NoError(t, err)

	_, err = s.ToggleFavorite(context.Background(), "w1")
	assert.Error(t, err)
	assert.True(t, s.IsFavorite("w1"))
}

func TestUnencodableMutationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	slot := &memorySlot{}
	s, err := Open(ctx, slot)
	require.NoError(t, err)
	require.NoError(t, s.ApplyCreated(ctx, work("w1", types.StatusPending)))

	// zero category and license do not encode
	err = s.ReplaceWorks(ctx, []types.Work{{ID: "w0"}})
	assert.ErrorIs(t, err, types.ErrValidation)
	err = s.ApplyCreated(ctx, types.Work{ID: "w2"})
	assert.ErrorIs(t, err, types.ErrValidation)
	bad := types.CategoryUnknown
	updated, err := s.ApplyUpdated(ctx, "w1", types.WorkPatch{Category: &bad})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.False(t, updated)

	require.Len(t, s.Works(), 1)
	assert.Equal(t, "w1", s.Works()[0].ID)
	assert.Equal(t, types.CategoryPhotos, s.Works()[0].Category)

	on, err := s.ToggleFavorite(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, on)

	reopened, err := Open(ctx, slot)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, reopened.Favorites())
	require.Len(t, reopened.Works(), 1)
	assert.Equal(t, "w1", reopened.Works()[0].ID)
}

func TestConcurrentMutations(t *testing.T) {
	slot := &memorySlot{}
	s, err := Open(context.Background(), slot)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			_ = s.ApplyCreated(context.Background(), work(id, types.StatusPending))
			_ = s.Works()
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Works(), 50)

	reopened, err := Open(context.Background(), slot)
	require.NoError(t, err)
	assert.Len(t, reopened.Works(), 50)
}
