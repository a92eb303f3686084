// Package session holds the per-client Session Store: who is using a client
// right now, persisted under the identity key so a reload restores it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"tubeclone/internal/middleware"
	"tubeclone/internal/models"
	"tubeclone/internal/observability"
	"tubeclone/internal/storage"
	"tubeclone/internal/task"
	"tubeclone/internal/validation"

	"github.com/google/uuid"
)

// DefaultDelay is the simulated backend latency of sign-in, sign-up and profile updates.
const DefaultDelay = time.Second

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("session: store closed")

// Toaster surfaces a transient notification to the client.
type Toaster interface {
	Toast(ctx context.Context, t models.Toast)
}

type nopToaster struct{}

func (nopToaster) Toast(context.Context, models.Toast) {}

// Option configures a Store.
type Option func(*Store)

// WithToaster sets the notification surface. The default discards toasts.
func WithToaster(t Toaster) Option {
	return func(s *Store) {
		if t != nil {
			s.toaster = t
		}
	}
}

// WithDelay overrides the simulated latency.
func WithDelay(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithIDGenerator overrides how identity ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is the session of one client. It is safe for concurrent use.
type Store struct {
	kv      storage.KV
	toaster Toaster
	delay   time.Duration
	newID   func() string

	mu       sync.Mutex
	identity *models.Identity
	closed   bool
}

// Open reads the persisted identity and returns a store in the matching
// state. A missing or malformed identity starts the store Anonymous.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:      kv,
		toaster: nopToaster{},
		delay:   DefaultDelay,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the held identity with the persisted one, picking up
// changes made through another Store bound to the same client.
func (s *Store) Reload(ctx context.Context) error {
	var ident models.Identity
	found, err := s.kv.GetJSON(ctx, storage.KeyIdentity, &ident)
	if err != nil && !found {
		return err
	}

	var held *models.Identity
	switch {
	case err != nil:
		middleware.Logger.WarnContext(ctx, "discarding malformed persisted identity",
			"client_id", s.kv.Name(), "error", err)
	case found && wellFormed(ident):
		held = &ident
	case found:
		middleware.Logger.WarnContext(ctx, "discarding incomplete persisted identity", "client_id", s.kv.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.identity = held
	return nil
}

func wellFormed(ident models.Identity) bool {
	return ident.ID != "" && ident.Email != "" && ident.Username != ""
}

// Close releases the store. Later operations fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.toaster = nopToaster{}
}

// IsAuthenticated reports whether an identity is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// Identity returns a copy of the held identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return cloneIdentity(*s.identity), true
}

// State returns the public session view.
func (s *Store) State() models.SessionState {
	ident, ok := s.Identity()
	if !ok {
		return models.SessionState{}
	}
	return models.SessionState{Authenticated: true, Identity: &ident}
}

// SignIn fabricates an identity from the email after the simulated delay.
// No credential check is performed.
func (s *Store) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if LocalPart(email) == "" || strings.TrimSpace(password) == "" {
		return models.Identity{}, s.refuse(ctx, "signin", models.ErrInvalidCredentials, "Invalid credentials")
	}

	ident, err := s.establish(ctx, models.Identity{Email: email, Username: LocalPart(email)})
	if err != nil {
		return models.Identity{}, s.fail(ctx, "signin", err, models.ErrInvalidCredentials)
	}

	s.record("signin", "success")
	s.toast(ctx, models.Toast{Title: "Success", Description: "You have been logged in", Variant: models.ToastDefault})
	middleware.Logger.InfoContext(ctx, "session signed in", "username", ident.Username)
	return ident, nil
}

// SignUp fabricates an identity directly from the supplied fields.
func (s *Store) SignUp(ctx context.Context, email, username, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || strings.TrimSpace(password) == "" {
		return models.Identity{}, s.refuse(ctx, "signup", models.ErrRegistrationFailed, "Registration failed")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return models.Identity{}, s.refuse(ctx, "signup", models.NewValidationError(err.Error()), err.Error())
	}

	ident, err := s.establish(ctx, models.Identity{Email: email, Username: username})
	if err != nil {
		return models.Identity{}, s.fail(ctx, "signup", err, models.ErrRegistrationFailed)
	}

	s.record("signup", "success")
	s.toast(ctx, models.Toast{Title: "Account created", Description: "Your account has been created successfully", Variant: models.ToastDefault})
	middleware.Logger.InfoContext(ctx, "session signed up", "username", ident.Username)
	return ident, nil
}

// establish persists a fresh identity after the simulated delay and makes it live.
func (s *Store) establish(ctx context.Context, ident models.Identity) (models.Identity, error) {
	return task.Do(ctx, s.delay, func(ctx context.Context) (models.Identity, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return models.Identity{}, ErrClosed
		}
		ident.ID = s.newID()
		if err := s.kv.SetJSON(ctx, storage.KeyIdentity, ident); err != nil {
			return models.Identity{}, err
		}
		s.identity = &ident
		return cloneIdentity(ident), nil
	})
}

// SignOut clears the live identity and its persisted copy. It always
// succeeds; a storage failure is logged and the client ends Anonymous.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.identity = nil
	err := s.kv.Delete(ctx, storage.KeyIdentity)
	s.mu.Unlock()

	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete persisted identity", "error", err)
	}
	s.record("signout", "success")
	s.toast(ctx, models.Toast{Title: "Logged out", Description: "You have been logged out successfully", Variant: models.ToastDefault})
	middleware.Logger.InfoContext(ctx, "session signed out")
}

// ProfileUpdate carries the mutable identity fields. Nil Bio or AvatarURL
// clears the stored value.
type ProfileUpdate struct {
	Username  string
	Bio       *string
	AvatarURL *string
}

// UpdateProfile replaces the mutable fields of the persisted identity in one
// atomic update. If the identity is gone by then, the store ends Anonymous.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (models.Identity, error) {
	if !s.IsAuthenticated() {
		return models.Identity{}, s.refuse(ctx, "update_profile", models.ErrNoActiveSession, "You must be signed in to update your profile")
	}

	upd.Username = strings.TrimSpace(upd.Username)
	if err := validateProfile(upd); err != nil {
		return models.Identity{}, s.refuse(ctx, "update_profile", models.NewValidationError(err.Error()), err.Error())
	}

	ident, err := task.Do(ctx, s.delay, func(ctx context.Context) (models.Identity, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return models.Identity{}, ErrClosed
		}

		// The persisted identity is authoritative: another store for this
		// client may have signed out while the delay ran.
		var updated models.Identity
		err := s.kv.Update(ctx, storage.KeyIdentity, func(current []byte, ok bool) ([]byte, error) {
			var persisted models.Identity
			if !ok || json.Unmarshal(current, &persisted) != nil || !wellFormed(persisted) {
				return nil, models.ErrNoActiveSession
			}
			persisted.Username = upd.Username
			persisted.Bio = cloneString(upd.Bio)
			persisted.AvatarURL = cloneString(upd.AvatarURL)
			updated = persisted
			return json.Marshal(persisted)
		})
		if errors.Is(err, models.ErrNoActiveSession) {
			s.identity = nil
		}
		if err != nil {
			return models.Identity{}, err
		}
		s.identity = &updated
		return cloneIdentity(updated), nil
	})
	if errors.Is(err, models.ErrNoActiveSession) {
		return models.Identity{}, s.refuse(ctx, "update_profile", models.ErrNoActiveSession, "You must be signed in to update your profile")
	}
	if err != nil {
		return models.Identity{}, s.fail(ctx, "update_profile", err, models.NewInternalError(err))
	}

	s.record("update_profile", "success")
	s.toast(ctx, models.Toast{Title: "Profile updated", Description: "Your profile has been updated successfully", Variant: models.ToastDefault})
	middleware.Logger.InfoContext(ctx, "session profile updated", "username", ident.Username)
	return ident, nil
}

func validateProfile(upd ProfileUpdate) error {
	if err := validation.ValidateUsername(upd.Username); err != nil {
		return err
	}
	if upd.Bio != nil {
		if err := validation.ValidateBio(*upd.Bio); err != nil {
			return err
		}
	}
	if upd.AvatarURL != nil {
		if err := validation.ValidateAvatarURL(*upd.AvatarURL); err != nil {
			return err
		}
	}
	return nil
}

// RequireAuthenticated gates a personal action. While Anonymous it toasts a
// sign-in prompt naming the action and returns ErrNotAuthenticated.
func (s *Store) RequireAuthenticated(ctx context.Context, action string) (models.Identity, error) {
	ident, ok := s.Identity()
	if ok {
		return ident, nil
	}
	observability.SessionTransitions.WithLabelValues(action, "refused").Inc()
	middleware.Logger.WarnContext(ctx, "personal action refused while signed out", "action", action)
	s.toast(ctx, models.Toast{
		Title:       "Authentication required",
		Description: "Please sign in to " + action,
		Variant:     models.ToastDestructive,
	})
	return models.Identity{}, models.ErrNotAuthenticated
}

// refuse reports an operation rejected before any state change.
func (s *Store) refuse(ctx context.Context, op string, err error, description string) error {
	s.record(op, "refused")
	middleware.Logger.WarnContext(ctx, "session operation refused", "operation", op, "error", err)
	s.toast(ctx, models.Toast{Title: "Error", Description: description, Variant: models.ToastDestructive})
	return err
}

// fail reports an operation that got past validation but did not complete.
// Context cancellation is returned untouched and not toasted: the caller has
// gone away.
func (s *Store) fail(ctx context.Context, op string, err error, as *models.AppError) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.record(op, "cancelled")
		return err
	}
	if errors.Is(err, ErrClosed) {
		return err
	}
	s.record(op, "error")
	middleware.Logger.WarnContext(ctx, "session operation failed", "operation", op, "error", err)
	s.toast(ctx, models.Toast{Title: "Error", Description: as.Message, Variant: models.ToastDestructive})
	return &models.AppError{Code: as.Code, Message: as.Message, Err: err}
}

func (s *Store) record(op, outcome string) {
	observability.SessionTransitions.WithLabelValues(op, outcome).Inc()
}

func (s *Store) toast(ctx context.Context, t models.Toast) {
	s.mu.Lock()
	toaster := s.toaster
	s.mu.Unlock()
	toaster.Toast(ctx, t)
}

// LocalPart returns the part of email before the first '@', or the whole
// email when it has none.
func LocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func cloneIdentity(ident models.Identity) models.Identity {
	ident.Bio = cloneString(ident.Bio)
	ident.AvatarURL = cloneString(ident.AvatarURL)
	return ident
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
