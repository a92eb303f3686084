package view

import (
	"context"
	"strings"
	"time"

	"tubeclone/internal/catalog"
	"tubeclone/internal/models"
	"tubeclone/internal/session"
	"tubeclone/internal/validation"
)

const defaultCommentAvatar = "https://i.pravatar.cc/150?img=5"

// Gate refuses personal actions while signed out and otherwise returns the
// signed-in identity.
type Gate interface {
	RequireAuthenticated(ctx context.Context, action string) (models.Identity, error)
}

// WatchState is the local state of one watch page. It is discarded on navigation.
type WatchState struct {
	Video      models.Video     `json:"video"`
	Related    []models.Video   `json:"related"`
	Likes      int              `json:"likes"`
	Dislikes   int              `json:"dislikes"`
	Liked      bool             `json:"liked"`
	Disliked   bool             `json:"disliked"`
	Subscribed bool             `json:"subscribed"`
	Saved      bool             `json:"saved"`
	Comments   []models.Comment `json:"comments"`
}

// WatchPage applies watch page actions. Like and save persist to the
// client's liked and watch-later lists; everything else stays local.
// It is not safe for concurrent use.
type WatchPage struct {
	state   WatchState
	gate    Gate
	library *catalog.Library
	toaster session.Toaster
	newID   func() string
	now     func() time.Time
}

// SeedComments returns the comments a fresh watch page starts with.
func SeedComments(now time.Time) []models.Comment {
	day := 24 * time.Hour
	return []models.Comment{
		{
			ID:        "1",
			User:      models.CommentAuthor{Name: "Jane Smith", Avatar: "https://i.pravatar.cc/150?img=1"},
			Text:      "Great video! I learned a lot from this.",
			Timestamp: now.Add(-3 * day),
			Likes:     245,
		},
		{
			ID:        "2",
			User:      models.CommentAuthor{Name: "Mike Johnson", Avatar: "https://i.pravatar.cc/150?img=2"},
			Text:      "This is exactly what I was looking for. Could you make a follow-up video about this topic?",
			Timestamp: now.Add(-7 * day),
			Likes:     123,
		},
		{
			ID:        "3",
			User:      models.CommentAuthor{Name: "Sarah Williams", Avatar: "https://i.pravatar.cc/150?img=3"},
			Text:      "I disagree with some points, but overall a good explanation.",
			Timestamp: now.Add(-14 * day),
			Likes:     56,
		},
	}
}

func (w *WatchPage) State() WatchState {
	s := w.state
	s.Related = append([]models.Video(nil), w.state.Related...)
	s.Comments = append([]models.Comment(nil), w.state.Comments...)
	return s
}

// Like toggles the like. Liking clears a dislike.
func (w *WatchPage) Like(ctx context.Context) error {
	if _, err := w.gate.RequireAuthenticated(ctx, "like videos"); err != nil {
		return err
	}
	want := !w.state.Liked
	if err := w.library.SetLiked(ctx, w.state.Video, want); err != nil {
		return err
	}
	w.setLiked(want)
	if want && w.state.Disliked {
		w.state.Disliked = false
		w.state.Dislikes--
	}
	return nil
}

// Dislike toggles the dislike. Disliking clears (and unpersists) a like.
func (w *WatchPage) Dislike(ctx context.Context) error {
	if _, err := w.gate.RequireAuthenticated(ctx, "dislike videos"); err != nil {
		return err
	}
	want := !w.state.Disliked
	if want && w.state.Liked {
		if err := w.library.SetLiked(ctx, w.state.Video, false); err != nil {
			return err
		}
		w.setLiked(false)
	}
	w.state.Disliked = want
	if want {
		w.state.Dislikes++
	} else {
		w.state.Dislikes--
	}
	return nil
}

func (w *WatchPage) setLiked(liked bool) {
	if liked == w.state.Liked {
		return
	}
	w.state.Liked = liked
	if liked {
		w.state.Likes++
	} else {
		w.state.Likes--
	}
}

// Subscribe toggles the channel subscription.
func (w *WatchPage) Subscribe(ctx context.Context) error {
	if _, err := w.gate.RequireAuthenticated(ctx, "subscribe"); err != nil {
		return err
	}
	w.state.Subscribed = !w.state.Subscribed
	return nil
}

// Save toggles the video in watch later.
func (w *WatchPage) Save(ctx context.Context) error {
	if _, err := w.gate.RequireAuthenticated(ctx, "save videos"); err != nil {
		return err
	}
	saved, err := w.library.ToggleWatchLater(ctx, w.state.Video)
	if err != nil {
		return err
	}
	w.state.Saved = saved
	return nil
}

// AddComment prepends a comment authored by the signed-in identity.
func (w *WatchPage) AddComment(ctx context.Context, text string) (models.Comment, error) {
	ident, err := w.gate.RequireAuthenticated(ctx, "comment")
	if err != nil {
		return models.Comment{}, err
	}
	if err := validation.ValidateCommentText(text); err != nil {
		return models.Comment{}, models.NewValidationError(err.Error())
	}

	author := models.CommentAuthor{Name: ident.Username, Avatar: defaultCommentAvatar}
	if ident.AvatarURL != nil && *ident.AvatarURL != "" {
		author.Avatar = *ident.AvatarURL
	}
	c := models.Comment{
		ID:        "comment-" + w.newID(),
		User:      author,
		Text:      strings.TrimSpace(text),
		Timestamp: w.now(),
	}
	w.state.Comments = append([]models.Comment{c}, w.state.Comments...)
	w.toaster.Toast(ctx, models.Toast{
		Title:       "Comment added",
		Description: "Your comment has been added successfully",
		Variant:     models.ToastDefault,
	})
	return c, nil
}

// LikeComment toggles the like on one comment.
func (w *WatchPage) LikeComment(ctx context.Context, id string) error {
	if _, err := w.gate.RequireAuthenticated(ctx, "like comments"); err != nil {
		return err
	}
	for i := range w.state.Comments {
		c := &w.state.Comments[i]
		if c.ID != id {
			continue
		}
		if c.IsLiked {
			c.Likes--
		} else {
			c.Likes++
		}
		c.IsLiked = !c.IsLiked
		return nil
	}
	return models.NewNotFoundError("Comment", id)
}
