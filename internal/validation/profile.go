// Package validation checks user-supplied profile and comment input.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 50
	MaxBioLen      = 500
	MaxCommentLen  = 2000
)

// ValidateUsername requires a non-blank username of at most MaxUsernameLen characters.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return fmt.Errorf("username is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxUsernameLen {
		return fmt.Errorf("username too long (max %d characters)", MaxUsernameLen)
	}
	return nil
}

// ValidateBio limits the biography length.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLen {
		return fmt.Errorf("bio too long (max %d characters)", MaxBioLen)
	}
	return nil
}

// ValidateAvatarURL accepts an empty value or an absolute http(s) URL.
func ValidateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("avatar URL must be an absolute http(s) URL")
	}
	return nil
}

// ValidateCommentText requires non-blank text within MaxCommentLen characters.
func ValidateCommentText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("comment cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLen {
		return fmt.Errorf("comment too long (max %d characters)", MaxCommentLen)
	}
	return nil
}
