package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tubeclone/internal/catalog"
	"tubeclone/internal/featureflags"
	"tubeclone/internal/models"
	"tubeclone/internal/notify"
	"tubeclone/internal/routes"
	"tubeclone/internal/session"
	"tubeclone/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) SendMessage(m notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) snapshot() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

func (r *recorder) find(typ string, seq uint64) (notify.Message, bool) {
	for _, m := range r.snapshot() {
		if m.Type == typ && m.Seq == seq {
			return m, true
		}
	}
	return notify.Message{}, false
}

func (r *recorder) waitFor(t *testing.T, typ string, seq uint64) notify.Message {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := r.find(typ, seq)
		return ok
	}, 2*time.Second, 5*time.Millisecond, "no %s message for seq %d", typ, seq)
	m, _ := r.find(typ, seq)
	return m
}

type toastLog struct {
	mu     sync.Mutex
	toasts []models.Toast
}

func (l *toastLog) Toast(_ context.Context, t models.Toast) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toasts = append(l.toasts, t)
}

func (l *toastLog) titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.toasts))
	for i, t := range l.toasts {
		out[i] = t.Title
	}
	return out
}

type fixture struct {
	nav     *Navigator
	sink    *recorder
	toasts  *toastLog
	session *session.Store
	kv      storage.KV
}

func newFixture(t *testing.T, backing storage.Store, catalogDelay time.Duration, flags string) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	kv := storage.Namespace(backing, "client-1")
	toasts := &toastLog{}
	sess, err := session.Open(ctx, kv, session.WithDelay(0), session.WithToaster(toasts))
	require.NoError(t, err)

	sink := &recorder{}
	nav := NewNavigator(ctx, Deps{
		ClientID: "client-1",
		KV:       kv,
		Catalog:  catalog.New(catalog.WithSeed(7), catalog.WithDelay(catalogDelay)),
		Session:  sess,
		Flags:    featureflags.NewManager(flags),
		Toaster:  toasts,
	}, sink)
	t.Cleanup(nav.Close)
	return &fixture{nav: nav, sink: sink, toasts: toasts, session: sess, kv: kv}
}

func TestNavigate_FeedLoadsThenResults(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")

	v := f.nav.Navigate("/")
	assert.Equal(t, routes.Feed, v.Kind)

	res := f.sink.waitFor(t, notify.TypeResults, 1)
	msgs := f.sink.snapshot()
	assert.Equal(t, notify.TypeLoading, msgs[0].Type)
	payload, ok := res.Payload.(Results)
	require.True(t, ok)
	assert.Len(t, payload.Videos, catalog.FeedSize)
}

func TestNavigate_StaleResultsDiscarded(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 50*time.Millisecond, "")

	f.nav.Navigate("/category/music")
	f.nav.Navigate("/category/gaming")

	res := f.sink.waitFor(t, notify.TypeResults, 2)
	payload := res.Payload.(Results)
	assert.Equal(t, "gaming", payload.Category)

	// Give the first load every chance to land.
	time.Sleep(150 * time.Millisecond)
	_, stale := f.sink.find(notify.TypeResults, 1)
	assert.False(t, stale)
	_, failed := f.sink.find(notify.TypeNotFound, 1)
	assert.False(t, failed)
}

func TestNavigate_ImmediateViews(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), time.Hour, "")

	f.nav.Navigate("/results?q=%20%20")
	res, ok := f.sink.find(notify.TypeResults, 1)
	require.True(t, ok, "blank search renders without loading")
	assert.Empty(t, res.Payload.(Results).Videos)

	f.nav.Navigate("/settings")
	res, ok = f.sink.find(notify.TypeResults, 2)
	require.True(t, ok)
	assert.True(t, res.Payload.(Results).AuthRequired)

	f.nav.Navigate("/no/such/page")
	_, ok = f.sink.find(notify.TypeNotFound, 3)
	assert.True(t, ok)

	for _, m := range f.sink.snapshot() {
		assert.NotEqual(t, notify.TypeLoading, m.Type)
	}
}

func TestNavigate_SignInGatedViews(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), time.Hour, "")

	f.nav.Navigate("/subscriptions")
	res, ok := f.sink.find(notify.TypeResults, 1)
	require.True(t, ok, "anonymous subscriptions render without loading")
	assert.True(t, res.Payload.(Results).AuthRequired)
	assert.Empty(t, res.Payload.(Results).Videos)

	f.nav.Navigate("/liked-videos")
	res, ok = f.sink.find(notify.TypeResults, 2)
	require.True(t, ok, "anonymous liked videos render without loading")
	payload := res.Payload.(Results)
	assert.True(t, payload.AuthRequired)
	assert.Equal(t, catalog.CategoryLiked, payload.Category)

	for _, m := range f.sink.snapshot() {
		assert.NotEqual(t, notify.TypeLoading, m.Type)
	}
}

func TestNavigate_SignInGatedViewsLoadWhenSignedIn(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")
	_, err := f.session.SignIn(context.Background(), "viewer@example.com", "pw")
	require.NoError(t, err)

	f.nav.Navigate("/subscriptions")
	res := f.sink.waitFor(t, notify.TypeResults, 1)
	assert.False(t, res.Payload.(Results).AuthRequired)
	assert.Len(t, res.Payload.(Results).Videos, catalog.FeedSize)

	f.nav.Navigate("/liked-videos")
	res = f.sink.waitFor(t, notify.TypeResults, 2)
	assert.False(t, res.Payload.(Results).AuthRequired)
	assert.Empty(t, res.Payload.(Results).Videos)
	_, loaded := f.sink.find(notify.TypeLoading, 2)
	assert.True(t, loaded)
}

func TestNavigate_TopLevelCategory(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")
	assert.Equal(t, routes.Category, f.nav.Navigate("/music").Kind)
	res := f.sink.waitFor(t, notify.TypeResults, 1)
	assert.Equal(t, "music", res.Payload.(Results).Category)
}

func TestNavigate_ShortsFlag(t *testing.T) {
	off := newFixture(t, storage.NewMemoryStore(), 0, "shorts=off")
	assert.Equal(t, routes.NotFound, off.nav.Navigate("/shorts").Kind)

	on := newFixture(t, storage.NewMemoryStore(), 0, "")
	assert.Equal(t, routes.Shorts, on.nav.Navigate("/shorts").Kind)
	res := on.sink.waitFor(t, notify.TypeResults, 1)
	assert.Len(t, res.Payload.(Results).Videos, shortsCount)
}

func TestNavigate_LatencyFlagDisablesDelay(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), time.Hour, "simulated_latency=off")
	f.nav.Navigate("/category/news")
	f.sink.waitFor(t, notify.TypeResults, 1)
}

type brokenStore struct{ storage.Store }

func (b brokenStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if key == storage.KeyHistory {
		return nil, false, errors.New("store offline")
	}
	return b.Store.Get(ctx, namespace, key)
}

func TestNavigate_FailedLoadFallsBackToNotFound(t *testing.T) {
	f := newFixture(t, brokenStore{storage.NewMemoryStore()}, 0, "")
	f.nav.Navigate("/category/history")
	f.sink.waitFor(t, notify.TypeNotFound, 1)
}

func TestWatchPage_AnonymousActionsRefused(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")
	f.nav.Navigate("/watch/music-2-abc")
	res := f.sink.waitFor(t, notify.TypeResults, 1)
	watch := res.Payload.(Results).Watch
	require.NotNil(t, watch)
	assert.Equal(t, "music-2-abc", watch.Video.ID)
	assert.Len(t, watch.Comments, 3)

	// Anonymous visits still record history.
	history, err := catalog.ReadList(context.Background(), f.kv, catalog.CategoryHistory)
	require.NoError(t, err)
	require.Len(t, history, 1)

	for _, a := range []Action{{Action: ActionLike}, {Action: ActionSave}, {Action: ActionComment, Text: "hi"}, {Action: ActionSubscribe}} {
		err := f.nav.Act(a)
		assert.ErrorIs(t, err, models.ErrNotAuthenticated, a.Action)
	}
	assert.Equal(t, []string{
		"Authentication required", "Authentication required",
		"Authentication required", "Authentication required",
	}, f.toasts.titles())

	liked, err := catalog.ReadList(context.Background(), f.kv, catalog.CategoryLiked)
	require.NoError(t, err)
	assert.Empty(t, liked)

	last := f.sink.snapshot()[len(f.sink.snapshot())-1]
	assert.Equal(t, notify.TypeError, last.Type)
	assert.Equal(t, models.CodeNotAuthenticated, last.Payload.(models.ErrorResponse).Code)
}

func TestWatchPage_SignedInActionsPersist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storage.NewMemoryStore(), 0, "")
	_, err := f.session.SignIn(ctx, "viewer@example.com", "pw")
	require.NoError(t, err)

	f.nav.Navigate("/watch/gaming-0-q")
	res := f.sink.waitFor(t, notify.TypeResults, 1)
	before := *res.Payload.(Results).Watch

	require.NoError(t, f.nav.Act(Action{Action: ActionLike}))
	state := f.nav.watch.State()
	assert.True(t, state.Liked)
	assert.Equal(t, before.Likes+1, state.Likes)
	liked, err := catalog.ReadList(ctx, f.kv, catalog.CategoryLiked)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, "gaming-0-q", liked[0].ID)

	// Disliking clears the like, locally and in storage.
	require.NoError(t, f.nav.Act(Action{Action: ActionDislike}))
	state = f.nav.watch.State()
	assert.False(t, state.Liked)
	assert.True(t, state.Disliked)
	assert.Equal(t, before.Likes, state.Likes)
	liked, err = catalog.ReadList(ctx, f.kv, catalog.CategoryLiked)
	require.NoError(t, err)
	assert.Empty(t, liked)

	require.NoError(t, f.nav.Act(Action{Action: ActionSave}))
	assert.True(t, f.nav.watch.State().Saved)
	saved, err := catalog.ReadList(ctx, f.kv, catalog.CategoryWatchLater)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	require.NoError(t, f.nav.Act(Action{Action: ActionSubscribe}))
	assert.True(t, f.nav.watch.State().Subscribed)

	err = f.nav.Act(Action{Action: ActionComment, Text: "   "})
	assert.ErrorIs(t, err, &models.AppError{Code: models.CodeValidation})
	require.NoError(t, f.nav.Act(Action{Action: ActionComment, Text: " first! "}))
	comments := f.nav.watch.State().Comments
	require.Len(t, comments, 4)
	assert.Equal(t, "first!", comments[0].Text)
	assert.Equal(t, "viewer", comments[0].User.Name)
	assert.Contains(t, f.toasts.titles(), "Comment added")

	require.NoError(t, f.nav.Act(Action{Action: ActionLikeComment, CommentID: "1"}))
	assert.Equal(t, 246, f.nav.watch.State().Comments[1].Likes)
	assert.Error(t, f.nav.Act(Action{Action: ActionLikeComment, CommentID: "missing"}))

	// A fresh visit starts from the persisted lists.
	f.nav.Navigate("/watch/gaming-0-q")
	res = f.sink.waitFor(t, notify.TypeResults, 2)
	again := res.Payload.(Results).Watch
	assert.False(t, again.Liked)
	assert.True(t, again.Saved)
	assert.False(t, again.Subscribed)
	assert.Len(t, again.Comments, 3)
}

func TestAct_WithoutWatchPage(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")
	f.nav.Navigate("/login")
	assert.ErrorIs(t, f.nav.Act(Action{Action: ActionLike}), ErrNoWatchPage)
}

func TestHandle_Frames(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore(), 0, "")

	f.nav.Handle([]byte(`{"type":"navigate","path":"/explore"}`))
	res := f.sink.waitFor(t, notify.TypeResults, 1)
	assert.NotEmpty(t, res.Payload.(Results).Categories)

	f.nav.Handle([]byte(`not json`))
	f.nav.Handle([]byte(`{"type":"teleport"}`))
	errs := 0
	for _, m := range f.sink.snapshot() {
		if m.Type == notify.TypeError {
			errs++
		}
	}
	assert.Equal(t, 2, errs)

	f.nav.Handle([]byte(`{"type":"session"}`))
	msgs := f.sink.snapshot()
	assert.Equal(t, notify.TypeState, msgs[len(msgs)-1].Type)
}

func TestHandle_SeesSignInFromAnotherStore(t *testing.T) {
	ctx := context.Background()
	backing := storage.NewMemoryStore()
	f := newFixture(t, backing, 0, "")

	other, err := session.Open(ctx, storage.Namespace(backing, "client-1"), session.WithDelay(0))
	require.NoError(t, err)
	_, err = other.SignIn(ctx, "dana@example.com", "pw")
	require.NoError(t, err)

	f.nav.Handle([]byte(`{"type":"navigate","path":"/watch/music-1-x"}`))
	f.sink.waitFor(t, notify.TypeResults, 1)
	f.nav.Handle([]byte(`{"type":"action","action":"like"}`))

	msgs := f.sink.snapshot()
	assert.Equal(t, notify.TypeState, msgs[len(msgs)-1].Type)
	assert.True(t, f.nav.watch.State().Liked)
}
