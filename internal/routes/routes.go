// Package routes resolves client paths to the view that renders them.
package routes

import (
	"net/url"
	"strings"
)

// Kind identifies a view.
type Kind string

const (
	Feed          Kind = "feed"
	Watch         Kind = "watch"
	Search        Kind = "search"
	Explore       Kind = "explore"
	Shorts        Kind = "shorts"
	Subscriptions Kind = "subscriptions"
	Category      Kind = "category"
	Login         Kind = "login"
	Register      Kind = "register"
	Settings      Kind = "settings"
	NotFound      Kind = "not_found"
)

// View is a resolved route.
type View struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	// VideoID is set for Watch.
	VideoID string `json:"videoId,omitempty"`
	// Category is set for Category.
	Category string `json:"category,omitempty"`
	// Query is the trimmed search text; empty means no search was performed.
	Query string `json:"query,omitempty"`
}

// Searched reports whether a search view carries a non-blank query.
func (v View) Searched() bool { return v.Kind == Search && v.Query != "" }

var static = map[string]Kind{
	"/":              Feed,
	"/results":       Search,
	"/explore":       Explore,
	"/shorts":        Shorts,
	"/subscriptions": Subscriptions,
	"/login":         Login,
	"/register":      Register,
	"/settings":      Settings,
}

// Resolve maps a path and raw query string to a view. A single segment that
// names no static view is a category; anything else unmatched resolves to
// NotFound.
func Resolve(path, rawQuery string) View {
	if path == "" {
		path = "/"
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		if rawQuery == "" && path[i] == '?' {
			rawQuery = strings.SplitN(path[i+1:], "#", 2)[0]
		}
		path = path[:i]
	}
	clean := path
	if len(clean) > 1 {
		clean = strings.TrimRight(clean, "/")
	}

	if kind, ok := static[clean]; ok {
		v := View{Kind: kind, Path: clean}
		if kind == Search {
			q, _ := url.ParseQuery(rawQuery)
			v.Query = strings.TrimSpace(q.Get("q"))
		}
		return v
	}

	if id, ok := param(clean, "/watch/"); ok {
		return View{Kind: Watch, Path: clean, VideoID: id}
	}
	if name, ok := param(clean, "/category/"); ok {
		return View{Kind: Category, Path: clean, Category: strings.ToLower(name)}
	}
	// Categories and the persisted lists live at top-level paths (/music, /history).
	if name, ok := param(clean, "/"); ok {
		return View{Kind: Category, Path: clean, Category: strings.ToLower(name)}
	}
	return View{Kind: NotFound, Path: path}
}

// param extracts the single unescaped segment following prefix.
func param(path, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	seg, err := url.PathUnescape(rest)
	if err != nil || strings.TrimSpace(seg) == "" {
		return "", false
	}
	return seg, true
}
