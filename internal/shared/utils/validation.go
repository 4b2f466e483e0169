package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxFolderLength      = 64
	MaxAreaIDLength      = 128
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
	MaxTitleLength       = 256
)

// Regular expressions for validation
var (
	// ExtensionFolderPattern allows alphanumeric, dots, hyphens, underscores;
	// the first character must be alphanumeric
	ExtensionFolderPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	// ThemeFolderPattern drops hyphens, which separate folder and area id
	// in theme area record keys
	ThemeFolderPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._]*$`)
	// AreaIDPattern allows lowercase alphanumeric, hyphens, underscores, dots
	AreaIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// FolderPolicy decides which extension folder names may be loaded or activated.
type FolderPolicy struct {
	Pattern   *regexp.Regexp
	MaxLength int
	// Reserved names are rejected case-insensitively
	Reserved []string
}

// DefaultFolderPolicy returns the policy used for widget and theme folders.
func DefaultFolderPolicy() FolderPolicy {
	return FolderPolicy{
		Pattern:   ExtensionFolderPattern,
		MaxLength: MaxFolderLength,
		Reserved:  []string{"con", "nul", "aux", "prn"},
	}
}

// ThemeFolderPolicy is the default policy without hyphens. Theme area keys
// join folder and area id with "-", so a hyphenated folder could collide
// with another theme's key.
func ThemeFolderPolicy() FolderPolicy {
	p := DefaultFolderPolicy()
	p.Pattern = ThemeFolderPattern
	return p
}

// Validate returns an error describing why folder is not acceptable.
func (p FolderPolicy) Validate(folder string) error {
	if folder == "" {
		return fmt.Errorf("folder is required")
	}
	if utf8.RuneCountInString(folder) > p.MaxLength {
		return fmt.Errorf("folder must not exceed %d characters", p.MaxLength)
	}
	// Path traversal is checked before the pattern so the message is specific
	if strings.Contains(folder, "..") || strings.ContainsAny(folder, `/\`) {
		return fmt.Errorf("folder %q contains path components", folder)
	}
	if !p.Pattern.MatchString(folder) {
		return fmt.Errorf("folder %q contains invalid characters", folder)
	}
	for _, r := range p.Reserved {
		if strings.EqualFold(folder, r) {
			return fmt.Errorf("folder %q is reserved", folder)
		}
	}
	return nil
}

// Allows reports whether folder passes the policy.
func (p FolderPolicy) Allows(folder string) bool {
	return p.Validate(folder) == nil
}

// IsValidExtensionFolder checks folder against the default policy.
func IsValidExtensionFolder(folder string) bool {
	return DefaultFolderPolicy().Allows(folder)
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateAreaID validates a widget area id. Ids are compared lowercase, so
// the check runs on the lowercased value.
func ValidateAreaID(id string) error {
	if err := ValidateString(id, "area id", 1, MaxAreaIDLength, true); err != nil {
		return err
	}

	if !AreaIDPattern.MatchString(strings.ToLower(id)) {
		return fmt.Errorf("area id %q contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", id)
	}

	return nil
}

// ValidateName validates a display name field
func ValidateName(name, fieldName string) error {
	return ValidateString(name, fieldName, 1, MaxNameLength, true)
}

// ValidateDescription validates a description field
func ValidateDescription(description, fieldName string, required bool) error {
	return ValidateString(description, fieldName, 0, MaxDescriptionLength, required)
}
