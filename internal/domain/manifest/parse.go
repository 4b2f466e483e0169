package manifest

import (
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/Canopy/backend/internal/shared/errs"
	"github.com/GriffinCanCode/Canopy/backend/internal/shared/utils"
)

// ErrNoManifest is returned when a folder has none of the candidate files
var ErrNoManifest = errors.New("no manifest file")

// Extensions in priority order
var fileExtensions = []string{".json", ".yaml", ".yml", ".toml"}

var textPolicy = bluemonday.StrictPolicy()

// Locate returns the first existing manifest file in dir for base
func Locate(dir, base string) (string, error) {
	for _, ext := range fileExtensions {
		path := filepath.Join(dir, base+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", errs.IO("manifest.locate", err)
		}
	}
	return "", ErrNoManifest
}

// Decode parses data according to the file extension of path
func Decode(path string, data []byte, v interface{}) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = sonic.ConfigStd.Unmarshal(data, v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".toml":
		err = toml.Unmarshal(data, v)
	default:
		return errs.Validation("manifest.decode", "unsupported manifest format %q", filepath.Ext(path))
	}
	if err != nil {
		return &errs.Error{Kind: errs.KindValidation, Op: "manifest.decode", Message: fmt.Sprintf("malformed %s", filepath.Base(path)), Err: err}
	}
	return nil
}

// ReadFile locates and decodes the manifest in dir
func ReadFile(dir, base string, v interface{}) (string, error) {
	path, err := Locate(dir, base)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return path, errs.IO("manifest.read", err)
	}
	return path, Decode(path, data, v)
}

// Sanitize strips markup from display text. The policy escapes entities,
// which are decoded again since the result is plain text, not HTML.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

func sanitizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := Sanitize(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func checkText(name, description, dir string) error {
	if err := utils.ValidateName(name, "manifest name"); err != nil {
		return errs.Validation("manifest.validate", "%s: %v", dir, err)
	}
	if err := utils.ValidateDescription(description, "manifest description", false); err != nil {
		return errs.Validation("manifest.validate", "%s: %v", dir, err)
	}
	return nil
}

// FinalizeTheme attaches the folder, sanitizes display text and dedups areas
func FinalizeTheme(m *ThemeManifest, dir string) error {
	m.Directory = dir
	m.Folder = strings.ToLower(dir)
	m.Name = Sanitize(m.Name)
	m.Description = Sanitize(m.Description)
	m.Author = Sanitize(m.Author)
	m.Tags = sanitizeAll(m.Tags)
	if err := checkText(m.Name, m.Description, dir); err != nil {
		return err
	}

	areas := DedupAreas(m.WidgetAreas)
	for i := range areas {
		areas[i].Name = Sanitize(areas[i].Name)
	}
	m.WidgetAreas = areas
	return nil
}

// FinalizeWidget attaches the folder and sanitizes display text
func FinalizeWidget(m *WidgetManifest, dir string) error {
	m.Directory = dir
	m.Folder = strings.ToLower(dir)
	m.Name = Sanitize(m.Name)
	m.Description = Sanitize(m.Description)
	m.Author = Sanitize(m.Author)
	m.Tags = sanitizeAll(m.Tags)
	return checkText(m.Name, m.Description, dir)
}
