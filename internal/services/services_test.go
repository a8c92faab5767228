package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zidesign/catalog/internal/db"
	"github.com/zidesign/catalog/internal/metrics"
	"github.com/zidesign/catalog/internal/mq"
	"github.com/zidesign/catalog/internal/storage"
	"github.com/zidesign/catalog/internal/store"
	"github.com/zidesign/catalog/pkg/logger"
	"github.com/zidesign/catalog/types"
)

const adminPassword = "admin-pass"

type fixture struct {
	userRepo UserRepository
	users    *UserService
	works    *WorkService
	images   *storage.MemoryBackend
	events   *mq.MQ
	metrics  *metrics.Metrics
	admin    types.User
	alice    types.User
	bob      types.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	log := logger.Discard()
	m := metrics.New()
	backend := storage.NewMemoryBackend("files")
	events := mq.New(mq.NewMemoryBackend(), "works.events")
	t.Cleanup(func() { events.Close() })

	userRepo := store.NewUserRepository(conn, db.DriverSQLite)
	f := fixture{
		userRepo: userRepo,
		users:    NewUserService(userRepo, []string{"Admin@ZiDesign.com"}, log, m),
		works: NewWorkService(store.NewWorkRepository(conn, db.DriverSQLite), log,
			WithImages(storage.NewImages(backend, "https://cdn.test")),
			WithEvents(events),
			WithMetrics(m),
		),
		images:  backend,
		events:  events,
		metrics: m,
	}

	f.admin, err = f.users.Register(ctx, types.RegisterInput{Email: "admin@zidesign.com", Name: "Admin", Password: adminPassword})
	require.NoError(t, err)
	f.alice, err = f.users.Register(ctx, types.RegisterInput{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)
	f.bob, err = f.users.Register(ctx, types.RegisterInput{Email: "bob@example.com", Name: "Bob", Password: "secret123"})
	require.NoError(t, err)
	return f
}

func sampleInput(title string) types.WorkInput {
	return types.WorkInput{
		Title:       title,
		Description: "A description",
		Category:    types.CategoryVectors,
		License:     types.LicenseFree,
		Tags:        []string{" flat ", "flat", "", "minimal"},
	}
}

func TestRegisterAssignsRoleAndAvatar(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, types.RoleAdmin, f.admin.Role)
	assert.Equal(t, types.RoleUser, f.alice.Role)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice%40example.com", f.alice.Avatar)
	assert.Empty(t, f.alice.PasswordHash)
	assert.NotEmpty(t, f.bob.PasswordHash)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.Registrations))
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, types.RegisterInput{Email: "ALICE@example.com", Name: "Again"})
	assert.ErrorIs(t, err, types.ErrConflict)

	_, err = f.users.Register(ctx, types.RegisterInput{Email: "not-an-email", Name: "X"})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.users.Register(ctx, types.RegisterInput{Email: "x@example.com", Name: "  "})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAdminAccountsRequirePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Login(ctx, types.LoginInput{Email: "admin@zidesign.com"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	admin, err := f.users.Login(ctx, types.LoginInput{Email: "admin@zidesign.com", Password: adminPassword})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, admin.Role)

	legacy, err := f.userRepo.Create(ctx, types.User{Email: "legacy@zidesign.com", Name: "Legacy", Role: types.RoleAdmin})
	require.NoError(t, err)
	_, err = f.users.Login(ctx, types.LoginInput{Email: legacy.Email})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminEmailCannotBeClaimedWithoutPassword(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	users := NewUserService(store.NewUserRepository(conn, db.DriverSQLite), []string{"admin@zidesign.com"}, logger.Discard(), nil)

	_, err = users.Register(ctx, types.RegisterInput{Email: "admin@zidesign.com", Name: "Squatter"})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = users.Login(ctx, types.LoginInput{Email: "admin@zidesign.com"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Login(ctx, types.LoginInput{Email: " Alice@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, u.ID)

	_, err = f.users.Login(ctx, types.LoginInput{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = f.users.Login(ctx, types.LoginInput{Email: "bob@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	u, err = f.users.Login(ctx, types.LoginInput{Email: "bob@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, u.ID)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bio := "vector artist"
	u, err := f.users.UpdateProfile(ctx, f.alice, f.alice.ID, types.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "vector artist", u.Bio)
	assert.Equal(t, types.RoleUser, u.Role)

	_, err = f.users.UpdateProfile(ctx, f.bob, f.alice.ID, types.ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	empty := " "
	_, err = f.users.UpdateProfile(ctx, f.alice, f.alice.ID, types.ProfileUpdate{Name: &empty})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCreateStampsIdentityAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.works.Create(ctx, sampleInput("Poster"), f.alice)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, w.AuthorID)
	assert.Equal(t, "Alice", w.AuthorName)
	assert.Equal(t, f.alice.Avatar, w.AuthorAvatar)
	assert.Equal(t, types.StatusPending, w.Status)
	assert.Zero(t, w.Likes)
	assert.Zero(t, w.Downloads)
	assert.ElementsMatch(t, []string{"flat", "minimal"}, w.Tags)
	assert.WithinDuration(t, time.Now(), w.CreatedAt, time.Minute)

	w, err = f.works.Create(ctx, sampleInput("Official"), f.admin)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, w.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WorksSubmitted.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WorksSubmitted.WithLabelValues("approved")))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*types.WorkInput){
		"empty title":       func(in *types.WorkInput) { in.Title = "   " },
		"empty description": func(in *types.WorkInput) { in.Description = "" },
		"missing category":  func(in *types.WorkInput) { in.Category = types.CategoryUnknown },
		"missing license":   func(in *types.WorkInput) { in.License = types.LicenseUnknown },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := sampleInput("x")
			mutate(&in)
			_, err := f.works.Create(ctx, in, f.alice)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}

	_, err := f.works.Create(ctx, sampleInput("x"), types.User{ID: "ghost"})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	all, err := f.works.List(ctx, types.WorkFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateWithImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := sampleInput("Blue Sky")
	in.ImageBase64 = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg"))
	w, err := f.works.Create(ctx, in, f.alice)
	require.NoError(t, err)
	assert.Contains(t, w.ImageURL, "https://cdn.test/works/"+f.alice.ID+"/Blue_Sky_")
	assert.Equal(t, 1, f.images.Len())

	require.NoError(t, f.works.Delete(ctx, w.ID, f.alice))
	assert.Zero(t, f.images.Len())

	in.ImageBase64 = "%%%"
	_, err = f.works.Create(ctx, in, f.alice)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestSetStatusMatrix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.works.Create(ctx, sampleInput("w"), f.alice)
	require.NoError(t, err)

	_, err = f.works.SetStatus(ctx, w.ID, types.StatusApproved, f.alice)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.works.SetStatus(ctx, "missing", types.StatusApproved, f.admin)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = f.works.SetStatus(ctx, w.ID, types.StatusPending, f.admin)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	approved, err := f.works.SetStatus(ctx, w.ID, types.StatusApproved, f.admin)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, approved.Status)
	assert.Equal(t, f.alice.ID, approved.AuthorID)

	_, err = f.works.SetStatus(ctx, w.ID, types.StatusRejected, f.admin)
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestDeleteMatrix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w1, err := f.works.Create(ctx, sampleInput("w1"), f.alice)
	require.NoError(t, err)
	w2, err := f.works.Create(ctx, sampleInput("w2"), f.alice)
	require.NoError(t, err)

	assert.ErrorIs(t, f.works.Delete(ctx, w1.ID, f.bob), types.ErrUnauthorized)
	assert.ErrorIs(t, f.works.Delete(ctx, "missing", f.admin), types.ErrNotFound)

	require.NoError(t, f.works.Delete(ctx, w1.ID, f.alice))
	require.NoError(t, f.works.Delete(ctx, w2.ID, f.admin))

	all, err := f.works.List(ctx, types.WorkFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.works.Create(ctx, sampleInput("w"), f.alice)
	require.NoError(t, err)
	_, err = f.works.SetStatus(ctx, w.ID, types.StatusRejected, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.works.Delete(ctx, w.ID, f.alice))

	consumeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var got []mq.EventType
	_ = f.events.ConsumeEvents(consumeCtx, func(_ context.Context, _ string, ev mq.WorkEvent) error {
		assert.Equal(t, w.ID, ev.WorkID)
		got = append(got, ev.Type)
		if len(got) == 3 {
			cancel()
		}
		return nil
	})
	assert.Equal(t, []mq.EventType{mq.EventWorkSubmitted, mq.EventWorkRejected, mq.EventWorkDeleted}, got)
}
