// Package models contains data structures for the application's domain models.
package models

// Identity is the signed-in user held by a client's session.
// Bio and AvatarURL are pointers so an absent value survives a round trip
// through persisted storage.
type Identity struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// SessionState is the public view of a session.
type SessionState struct {
	Authenticated bool      `json:"authenticated"`
	Identity      *Identity `json:"identity,omitempty"`
}
