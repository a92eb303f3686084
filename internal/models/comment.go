package models

import "time"

// CommentAuthor is the display identity attached to a comment.
type CommentAuthor struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Comment lives in a watch page's local state and is discarded on navigation.
type Comment struct {
	ID        string        `json:"id"`
	User      CommentAuthor `json:"user"`
	Text      string        `json:"text"`
	Timestamp time.Time     `json:"timestamp"`
	Likes     int           `json:"likes"`
	IsLiked   bool          `json:"isLiked"`
}
