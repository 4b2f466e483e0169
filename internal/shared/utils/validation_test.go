package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidExtensionFolder(t *testing.T) {
	tests := []struct {
		folder string
		valid  bool
	}{
		{"clean", true},
		{"BlogTags", true},
		{"recent-blog-posts", true},
		{"social_icons", true},
		{"theme.v2", true},
		{"2col", true},
		{"", false},
		{"..", false},
		{"../etc", false},
		{"a..b", false},
		{"a/b", false},
		{`a\b`, false},
		{".hidden", false},
		{"-dash", false},
		{"with space", false},
		{"semi;colon", false},
		{"NUL", false},
		{strings.Repeat("a", MaxFolderLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidExtensionFolder(tt.folder))
		})
	}
}

func TestFolderPolicyMessages(t *testing.T) {
	p := DefaultFolderPolicy()

	err := p.Validate("../x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "path components")

	err = p.Validate("a b")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid characters")
}

func TestThemeFolderPolicy(t *testing.T) {
	p := ThemeFolderPolicy()
	assert.True(t, p.Allows("Classic"))
	assert.True(t, p.Allows("clarity_2.0"))
	// "a-b" + "c" and "a" + "b-c" would share the key "a-b-c"
	assert.False(t, p.Allows("a-b"))
	assert.False(t, p.Allows("con"))
	assert.True(t, DefaultFolderPolicy().Allows("a-b"))
}

func TestValidateAreaID(t *testing.T) {
	assert.NoError(t, ValidateAreaID("blog-sidebar1"))
	assert.NoError(t, ValidateAreaID("Header"))
	assert.Error(t, ValidateAreaID(""))
	assert.Error(t, ValidateAreaID("bad id"))
	assert.Error(t, ValidateAreaID("nul\x00byte"))
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, ValidateString("", "title", 1, 10, false))
	assert.Error(t, ValidateString("", "title", 1, 10, true))
	assert.Error(t, ValidateString("this is too long", "title", 1, 10, true))
}
