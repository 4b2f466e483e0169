package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		filepath.Join("Themes", "Clarity", "theme.json"):           `{"name": "Clarity", "widgetAreas": [{"id": "hero", "name": "Hero"}]}`,
		filepath.Join("Themes", "Clarity", "wwwroot", "site.css"): "body{}",
		filepath.Join("Widgets", "BlogTags", "widget.yaml"):        "name: Blog Tags\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestManifestsCommand(t *testing.T) {
	dir := setupContent(t)

	out, err := run(t, "manifests", "--store", "memory", "--content-root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"widgets"`)
	assert.Contains(t, out, `"Blog Tags"`)
	assert.Contains(t, out, `"clarity"`)

	out, err = run(t, "manifests", "--store", "memory", "--content-root", dir, "--kind", "theme")
	require.NoError(t, err)
	assert.NotContains(t, out, `"widgets"`)

	_, err = run(t, "manifests", "--store", "memory", "--content-root", dir, "--kind", "plugin")
	assert.Error(t, err)
}

func TestActivateCommand(t *testing.T) {
	dir := setupContent(t)
	web := filepath.Join(dir, "public")
	db := filepath.Join(dir, "canopy.db")

	out, err := run(t, "activate", "Clarity", "--sqlite-path", db, "--content-root", dir, "--web-root", web)
	require.NoError(t, err)
	assert.Contains(t, out, "theme clarity activated (registered: true)")
	assert.Contains(t, out, "areas created: hero")
	assert.FileExists(t, filepath.Join(web, "themes", "clarity", "site.css"))

	// State persists in the sqlite file
	out, err = run(t, "activate", "clarity", "--sqlite-path", db, "--content-root", dir, "--web-root", web)
	require.NoError(t, err)
	assert.Contains(t, out, "registered: false")
	assert.NotContains(t, out, "areas created")

	_, err = run(t, "activate", "missing", "--store", "memory", "--content-root", dir)
	assert.Error(t, err)

	_, err = run(t, "activate")
	assert.Error(t, err)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://unused")
	t.Setenv("THEME", "classic")

	sub, _, err := newRootCmd().Find([]string{"manifests"})
	require.NoError(t, err)
	require.NoError(t, sub.ParseFlags([]string{"--store", "memory", "--theme", "Clarity", "--log-level", "debug"}))

	o := &overrides{store: "memory", theme: "Clarity", logLevel: "debug"}
	cfg, err := o.load(sub)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "Clarity", cfg.Theme.Current)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "postgres://unused", cfg.Storage.PostgresURL)
}
