package models

import "time"

// Video is a synthetic content record produced by the catalog.
// IsLive implies an empty Duration.
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Thumbnail     string    `json:"thumbnail"`
	ChannelName   string    `json:"channelName"`
	ChannelAvatar string    `json:"channelAvatar"`
	Views         int64     `json:"views"`
	UploadedAt    time.Time `json:"uploadedAt"`
	Duration      string    `json:"duration"`
	IsLive        bool      `json:"isLive"`
}

// ListEntry is a Video captured into one of a client's persisted lists.
type ListEntry struct {
	Video
	Timestamp time.Time `json:"timestamp"`
}

// Category is an explore-page category.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
