package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tubeclone/internal/models"
	"tubeclone/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingToaster struct {
	mu     sync.Mutex
	toasts []models.Toast
}

func (r *recordingToaster) Toast(_ context.Context, t models.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recordingToaster) last() models.Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return models.Toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) Set(context.Context, string, string, []byte) error { return f.err }

func openStore(t *testing.T, backing storage.Store, opts ...Option) (*Store, *recordingToaster) {
	t.Helper()
	toaster := &recordingToaster{}
	opts = append([]Option{WithDelay(0), WithToaster(toaster)}, opts...)
	s, err := Open(context.Background(), storage.Namespace(backing, "client-1"), opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, toaster
}

func TestLocalPart(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "alice"},
		{"a.b+c@d.org", "a.b+c"},
		{"x@y@z", "x"},
		{"no-at-sign", "no-at-sign"},
		{"@host", ""},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalPart(tt.email))
		})
	}
}

func TestSignIn_UsernameIsEmailLocalPart(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	s, toaster := openStore(t, backing, WithIDGenerator(func() string { return "id-1" }))
	require.False(t, s.IsAuthenticated())

	ident, err := s.SignIn(ctx, "  jane.doe@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: "id-1", Email: "jane.doe@example.com", Username: "jane.doe"}, ident)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "Success", toaster.last().Title)
	assert.Equal(t, models.ToastDefault, toaster.last().Variant)

	var persisted models.Identity
	found, err := storage.Namespace(backing, "client-1").GetJSON(ctx, storage.KeyIdentity, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ident, persisted)
}

func TestSignIn_EmptyInputRejected(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name, email, password string
	}{
		{"empty email", "", "pw"},
		{"blank email", "   ", "pw"},
		{"empty password", "a@b.com", ""},
		{"no local part", "@b.com", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, toaster := openStore(t, storage.NewMemoryStore())
			_, err := s.SignIn(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, models.ErrInvalidCredentials)
			assert.False(t, s.IsAuthenticated())
			assert.Equal(t, models.ToastDestructive, toaster.last().Variant)
		})
	}
}

func TestSignIn_StorageFailureSurfacesInvalidCredentials(t *testing.T) {
	boom := errors.New("disk full")
	s, toaster := openStore(t, failingStore{Store: storage.NewMemoryStore(), err: boom})

	_, err := s.SignIn(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "Invalid credentials", toaster.last().Description)
}

func TestSignIn_CancelledDuringDelayLeavesStateUnchanged(t *testing.T) {
	backing := storage.NewMemoryStore()
	s, toaster := openStore(t, backing, WithDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.SignIn(ctx, "a@b.com", "pw")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, toaster.toasts)

	_, ok, err := backing.Get(context.Background(), "client-1", storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignUp_UsesSuppliedFields(t *testing.T) {
	s, toaster := openStore(t, storage.NewMemoryStore())

	ident, err := s.SignUp(context.Background(), "a@b.com", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", ident.Email)
	assert.Equal(t, "alice", ident.Username)
	assert.NotEmpty(t, ident.ID)
	assert.Equal(t, "Account created", toaster.last().Title)
}

func TestSignUp_MissingFieldRejected(t *testing.T) {
	s, _ := openStore(t, storage.NewMemoryStore())

	_, err := s.SignUp(context.Background(), "a@b.com", " ", "pw")
	assert.ErrorIs(t, err, models.ErrRegistrationFailed)
	assert.Equal(t, 400, models.StatusFor(err))
	assert.False(t, s.IsAuthenticated())
}

func TestSignOut_AlwaysEndsAnonymous(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	s, toaster := openStore(t, backing)

	// Signing out while anonymous is still fine.
	s.SignOut(ctx)
	assert.False(t, s.IsAuthenticated())

	_, err := s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	s.SignOut(ctx)

	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, models.SessionState{}, s.State())
	assert.Equal(t, "Logged out", toaster.last().Title)
	_, ok, err := backing.Get(ctx, "client-1", storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfile_AnonymousFailsWithoutTouchingStorage(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Set(ctx, "client-1", storage.KeyHistory, []byte(`[]`)))
	s, toaster := openStore(t, backing)

	bio := "hi"
	_, err := s.UpdateProfile(ctx, ProfileUpdate{Username: "bob", Bio: &bio})
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
	assert.Equal(t, 409, models.StatusFor(err))
	assert.Equal(t, models.ToastDestructive, toaster.last().Variant)

	_, ok, err := backing.Get(ctx, "client-1", storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
	raw, _, err := backing.Get(ctx, "client-1", storage.KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))
}

func TestUpdateProfile_ReplacesMutableFields(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	s, toaster := openStore(t, backing)

	orig, err := s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	bio := "video nerd"
	avatar := "https://i.pravatar.cc/150?img=3"
	ident, err := s.UpdateProfile(ctx, ProfileUpdate{Username: " alice ", Bio: &bio, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, orig.ID, ident.ID)
	assert.Equal(t, orig.Email, ident.Email)
	assert.Equal(t, "alice", ident.Username)
	require.NotNil(t, ident.Bio)
	assert.Equal(t, bio, *ident.Bio)
	assert.Equal(t, "Profile updated", toaster.last().Title)

	// Nil bio clears it.
	ident, err = s.UpdateProfile(ctx, ProfileUpdate{Username: "alice", AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Nil(t, ident.Bio)

	reopened, err := Open(ctx, storage.Namespace(backing, "client-1"))
	require.NoError(t, err)
	got, ok := reopened.Identity()
	require.True(t, ok)
	assert.Equal(t, ident, got)
}

func TestUpdateProfile_SignOutElsewhereDuringDelay(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	editing, toaster := openStore(t, backing, WithDelay(100*time.Millisecond))
	_, err := editing.SignUp(ctx, "a@b.com", "alice", "pw")
	require.NoError(t, err)
	other, _ := openStore(t, backing)
	require.True(t, other.IsAuthenticated())

	done := make(chan error, 1)
	go func() {
		_, err := editing.UpdateProfile(ctx, ProfileUpdate{Username: "ghost"})
		done <- err
	}()
	other.SignOut(ctx)

	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("UpdateProfile did not return")
	}
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
	assert.False(t, editing.IsAuthenticated())
	assert.Equal(t, models.ToastDestructive, toaster.last().Variant)

	_, found, err := backing.Get(ctx, "client-1", storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, found)
	reopened, err := Open(ctx, storage.Namespace(backing, "client-1"))
	require.NoError(t, err)
	assert.False(t, reopened.IsAuthenticated())
}

func TestUpdateProfile_ValidationLeavesIdentity(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t, storage.NewMemoryStore())
	orig, err := s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)

	bad := "ftp://nope"
	_, err = s.UpdateProfile(ctx, ProfileUpdate{Username: "x", AvatarURL: &bad})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	ident, _ := s.Identity()
	assert.Equal(t, orig, ident)
}

func TestOpen_RestoresOrDiscardsPersistedIdentity(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		raw     string
		present bool
	}{
		{"well formed", `{"id":"1","email":"a@b.com","username":"a"}`, true},
		{"missing username", `{"id":"1","email":"a@b.com"}`, false},
		{"not json", `{"id":`, false},
		{"unknown fields tolerated", `{"id":"1","email":"a@b.com","username":"a","theme":"dark"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backing := storage.NewMemoryStore()
			require.NoError(t, backing.Set(ctx, "c", storage.KeyIdentity, []byte(tt.raw)))
			s, err := Open(ctx, storage.Namespace(backing, "c"))
			require.NoError(t, err)
			assert.Equal(t, tt.present, s.IsAuthenticated())
		})
	}
}

func TestScenario_SignUpSignOutReload(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	s, _ := openStore(t, backing)

	ident, err := s.SignUp(ctx, "a@b.com", "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", ident.Email)
	assert.Equal(t, "alice", ident.Username)

	s.SignOut(ctx)
	assert.False(t, s.IsAuthenticated())

	reloaded, err := Open(ctx, storage.Namespace(backing, "client-1"))
	require.NoError(t, err)
	assert.False(t, reloaded.IsAuthenticated())
}

func TestRequireAuthenticated(t *testing.T) {
	ctx := context.Background()
	s, toaster := openStore(t, storage.NewMemoryStore())

	_, err := s.RequireAuthenticated(ctx, "comment")
	assert.ErrorIs(t, err, models.ErrNotAuthenticated)
	assert.Equal(t, models.Toast{
		Title:       "Authentication required",
		Description: "Please sign in to comment",
		Variant:     models.ToastDestructive,
	}, toaster.last())

	_, err = s.SignIn(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	ident, err := s.RequireAuthenticated(ctx, "comment")
	require.NoError(t, err)
	assert.Equal(t, "a", ident.Username)
}

func TestClosedStoreRejectsMutations(t *testing.T) {
	s, _ := openStore(t, storage.NewMemoryStore())
	s.Close()

	_, err := s.SignIn(context.Background(), "a@b.com", "pw")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.IsAuthenticated())
}

func TestReload_PicksUpChangesFromAnotherStore(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	live, _ := openStore(t, backing)
	other, _ := openStore(t, backing)

	_, err := other.SignIn(ctx, "carol@example.com", "pw")
	require.NoError(t, err)
	assert.False(t, live.IsAuthenticated())

	require.NoError(t, live.Reload(ctx))
	ident, ok := live.Identity()
	require.True(t, ok)
	assert.Equal(t, "carol", ident.Username)

	other.SignOut(ctx)
	require.NoError(t, live.Reload(ctx))
	assert.False(t, live.IsAuthenticated())

	live.Close()
	assert.ErrorIs(t, live.Reload(ctx), ErrClosed)
}
