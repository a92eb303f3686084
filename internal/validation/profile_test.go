package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"blank", "   ", true},
		{"empty", "", true},
		{"max length", strings.Repeat("a", MaxUsernameLen), false},
		{"too long", strings.Repeat("a", MaxUsernameLen+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBio(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateBio(""))
	assert.NoError(t, ValidateBio(strings.Repeat("é", MaxBioLen)))
	assert.Error(t, ValidateBio(strings.Repeat("b", MaxBioLen+1)))
}

func TestValidateAvatarURL(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateAvatarURL(""))
	assert.NoError(t, ValidateAvatarURL("https://i.pravatar.cc/150?img=3"))
	assert.Error(t, ValidateAvatarURL("ftp://example.com/a.png"))
	assert.Error(t, ValidateAvatarURL("/relative.png"))
}

func TestValidateCommentText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCommentText("Great video!"))
	assert.Error(t, ValidateCommentText(" \t\n "))
	assert.Error(t, ValidateCommentText(strings.Repeat("x", MaxCommentLen+1)))
}
