// Package view drives one client's live view: it resolves navigations,
// loads their data as cancellable tasks and applies watch page actions.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"tubeclone/internal/catalog"
	"tubeclone/internal/featureflags"
	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/notify"
	"tubeclone/internal/observability"
	"tubeclone/internal/routes"
	"tubeclone/internal/session"
	"tubeclone/internal/storage"
	"tubeclone/internal/task"

	"github.com/google/uuid"
)

const (
	relatedCount = 10
	shortsCount  = 5
)

// Sink receives outbound live view messages. It must not block.
type Sink interface {
	SendMessage(notify.Message)
}

// Deps are the per-client collaborators of a Navigator.
type Deps struct {
	ClientID string
	KV       storage.KV
	Catalog  *catalog.Simulator
	Session  *session.Store
	Flags    *featureflags.Manager
	Toaster  session.Toaster
	Now      func() time.Time
	NewID    func() string
}

// Results is the payload of a results message.
type Results struct {
	Path       string               `json:"path"`
	Category   string               `json:"category,omitempty"`
	Query      string               `json:"query,omitempty"`
	Videos     []models.Video       `json:"videos"`
	Categories []models.Category    `json:"categories,omitempty"`
	Watch      *WatchState          `json:"watch,omitempty"`
	Session    *models.SessionState `json:"session,omitempty"`
	// AuthRequired marks views that render a sign-in prompt while anonymous.
	AuthRequired bool `json:"authRequired,omitempty"`
}

type loadFunc func(ctx context.Context) (Results, *WatchPage, error)

// Navigator owns the mounted view of one client. Results of a load are
// applied only while the navigation that started it is still current.
type Navigator struct {
	deps    Deps
	library *catalog.Library
	sink    Sink
	base    context.Context

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current routes.View
	watch   *WatchPage
}

// NewNavigator binds a navigator to ctx, which bounds every load it starts.
func NewNavigator(ctx context.Context, deps Deps, sink Sink) *Navigator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Toaster == nil {
		deps.Toaster = noToasts{}
	}
	if !deps.Flags.Enabled(featureflags.SimulatedLatency, deps.ClientID) {
		ctx = task.WithoutLatency(ctx)
	}
	return &Navigator{
		deps:    deps,
		library: catalog.NewLibrary(deps.KV, deps.Session).WithClock(deps.Now),
		sink:    sink,
		base:    ctx,
	}
}

type noToasts struct{}

func (noToasts) Toast(context.Context, models.Toast) {}

// Current returns the mounted view.
func (n *Navigator) Current() routes.View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate mounts the view for path, dropping any load still pending for
// the previous view.
func (n *Navigator) Navigate(path string) routes.View {
	v := routes.Resolve(path, "")
	if v.Kind == routes.Shorts && !n.deps.Flags.Enabled(featureflags.Shorts, n.deps.ClientID) {
		v = routes.View{Kind: routes.NotFound, Path: v.Path}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.gen++
	n.current = v
	n.watch = nil
	gen := n.gen

	var load loadFunc
	if !n.signInGated(v) {
		load = n.loader(v)
	}
	if load == nil {
		n.emitImmediate(gen, v)
		return v
	}

	ctx, cancel := context.WithCancel(n.base)
	n.cancel = cancel
	n.emit(notify.TypeLoading, gen, v, map[string]string{"path": v.Path})
	go n.run(ctx, gen, v, load)
	return v
}

// Close drops any pending load.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gen++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Navigator) run(ctx context.Context, gen uint64, v routes.View, load loadFunc) {
	res, page, err := load(ctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		observability.StaleLoadsDiscarded.WithLabelValues(string(v.Kind)).Inc()
		return
	}
	n.cancel = nil
	if err != nil {
		middleware.Logger.WarnContext(ctx, "view load failed", "client_id", n.deps.ClientID, "path", v.Path, "error", err)
		n.emit(notify.TypeNotFound, gen, v, map[string]string{"path": v.Path})
		return
	}
	n.watch = page
	n.emit(notify.TypeResults, gen, v, res)
}

// emitImmediate renders views that need no load. Callers hold n.mu.
func (n *Navigator) emitImmediate(gen uint64, v routes.View) {
	res := Results{Path: v.Path, Videos: []models.Video{}}
	switch v.Kind {
	case routes.NotFound:
		n.emit(notify.TypeNotFound, gen, v, map[string]string{"path": v.Path})
		return
	case routes.Search:
		// Blank query: no search performed.
	case routes.Login, routes.Register, routes.Settings:
		state := n.deps.Session.State()
		res.Session = &state
		res.AuthRequired = v.Kind == routes.Settings && !state.Authenticated
	default:
		res.Category = v.Category
		res.AuthRequired = n.signInGated(v)
	}
	n.emit(notify.TypeResults, gen, v, res)
}

// signInGated reports whether v shows a sign-in prompt instead of loading.
func (n *Navigator) signInGated(v routes.View) bool {
	switch {
	case v.Kind == routes.Subscriptions,
		v.Kind == routes.Category && v.Category == catalog.CategoryLiked:
		return !n.deps.Session.IsAuthenticated()
	}
	return false
}

// loader returns the load for v, or nil when v renders without one.
func (n *Navigator) loader(v routes.View) loadFunc {
	sim := n.deps.Catalog
	list := func(category string, limit int) loadFunc {
		return func(ctx context.Context) (Results, *WatchPage, error) {
			videos, err := sim.ListByCategory(ctx, n.deps.KV, category)
			if err != nil {
				return Results{}, nil, err
			}
			if limit > 0 && len(videos) > limit {
				videos = videos[:limit]
			}
			return Results{Path: v.Path, Category: v.Category, Videos: videos}, nil, nil
		}
	}

	switch v.Kind {
	case routes.Feed, routes.Subscriptions:
		return list(catalog.CategoryAll, 0)
	case routes.Shorts:
		return list(catalog.CategoryAll, shortsCount)
	case routes.Category:
		return list(v.Category, 0)
	case routes.Explore:
		base := list(catalog.CategoryAll, 0)
		return func(ctx context.Context) (Results, *WatchPage, error) {
			res, _, err := base(ctx)
			res.Categories = sim.Categories()
			return res, nil, err
		}
	case routes.Search:
		if !v.Searched() {
			return nil
		}
		return func(ctx context.Context) (Results, *WatchPage, error) {
			videos, err := sim.Search(ctx, v.Query)
			return Results{Path: v.Path, Query: v.Query, Videos: videos}, nil, err
		}
	case routes.Watch:
		return n.loadWatch(v)
	}
	return nil
}

func (n *Navigator) loadWatch(v routes.View) loadFunc {
	return func(ctx context.Context) (Results, *WatchPage, error) {
		sim := n.deps.Catalog
		video, err := sim.GetByID(ctx, v.VideoID)
		if err != nil {
			return Results{}, nil, err
		}
		related, err := sim.ListByCategory(ctx, n.deps.KV, catalog.CategoryAll)
		if err != nil {
			return Results{}, nil, err
		}
		if len(related) > relatedCount {
			related = related[:relatedCount]
		}
		if _, err := n.library.RecordHistory(ctx, video); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to record history", "video_id", video.ID, "error", err)
		}

		liked, err := n.library.Contains(ctx, catalog.CategoryLiked, video.ID)
		if err != nil {
			return Results{}, nil, err
		}
		saved, err := n.library.Contains(ctx, catalog.CategoryWatchLater, video.ID)
		if err != nil {
			return Results{}, nil, err
		}

		likes, dislikes := sim.Engagement()
		if liked {
			likes++
		}
		page := &WatchPage{
			state: WatchState{
				Video:    video,
				Related:  related,
				Likes:    likes,
				Dislikes: dislikes,
				Liked:    liked,
				Saved:    saved,
				Comments: SeedComments(n.deps.Now()),
			},
			gate:    n.deps.Session,
			library: n.library,
			toaster: n.deps.Toaster,
			newID:   n.deps.NewID,
			now:     n.deps.Now,
		}
		state := page.State()
		return Results{Path: v.Path, Videos: related, Watch: &state}, page, nil
	}
}

// Action types accepted on a watch page.
const (
	ActionLike        = "like"
	ActionDislike     = "dislike"
	ActionSubscribe   = "subscribe"
	ActionSave        = "save"
	ActionComment     = "comment"
	ActionLikeComment = "like_comment"
)

// Action is a watch page interaction.
type Action struct {
	Action    string `json:"action"`
	Text      string `json:"text,omitempty"`
	CommentID string `json:"commentId,omitempty"`
}

// ErrNoWatchPage is returned for actions while no watch page is mounted.
var ErrNoWatchPage = errors.New("view: no watch page mounted")

// Act applies a to the mounted watch page and emits the resulting state.
// Refused and failed actions emit an error message instead.
func (n *Navigator) Act(a Action) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx := n.base
	page := n.watch
	if page == nil {
		n.emitError(ErrNoWatchPage)
		return ErrNoWatchPage
	}

	var err error
	switch a.Action {
	case ActionLike:
		err = page.Like(ctx)
	case ActionDislike:
		err = page.Dislike(ctx)
	case ActionSubscribe:
		err = page.Subscribe(ctx)
	case ActionSave:
		err = page.Save(ctx)
	case ActionComment:
		_, err = page.AddComment(ctx, a.Text)
	case ActionLikeComment:
		err = page.LikeComment(ctx, a.CommentID)
	default:
		err = models.NewValidationError(fmt.Sprintf("unknown action %q", a.Action))
	}
	if err != nil {
		n.emitError(err)
		return err
	}

	state := page.State()
	n.emit(notify.TypeState, n.gen, n.current, state)
	return nil
}

// Inbound is a frame received from the client.
type Inbound struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	Action
}

// Handle dispatches one raw inbound frame.
func (n *Navigator) Handle(raw []byte) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		n.mu.Lock()
		n.emitError(models.NewValidationError("malformed frame"))
		n.mu.Unlock()
		return
	}
	// HTTP requests for this client may have signed in or out since the last frame.
	if err := n.deps.Session.Reload(n.base); err != nil {
		middleware.Logger.WarnContext(n.base, "failed to reload session", "client_id", n.deps.ClientID, "error", err)
	}
	switch in.Type {
	case "navigate":
		n.Navigate(in.Path)
	case "action":
		_ = n.Act(in.Action)
	case "session":
		n.mu.Lock()
		state := n.deps.Session.State()
		n.emit(notify.TypeState, n.gen, n.current, map[string]any{"session": state})
		n.mu.Unlock()
	default:
		n.mu.Lock()
		n.emitError(models.NewValidationError(fmt.Sprintf("unknown frame type %q", in.Type)))
		n.mu.Unlock()
	}
}

// emit sends one message. Callers hold n.mu so emissions follow navigation order.
func (n *Navigator) emit(typ string, gen uint64, v routes.View, payload any) {
	n.sink.SendMessage(notify.Message{Type: typ, View: string(v.Kind), Seq: gen, Payload: payload})
}

func (n *Navigator) emitError(err error) {
	body := models.ErrorResponse{Error: err.Error()}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		body = models.ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	}
	n.emit(notify.TypeError, n.gen, n.current, body)
}
