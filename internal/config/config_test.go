package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, DefaultMainPattern, cfg.MainPattern())
	assert.Equal(t, RefKindTag, cfg.Main.RefKind)
	assert.Equal(t, DefaultPreviewPattern, cfg.PreviewPattern())
	assert.Equal(t, RefKindBranch, cfg.Preview.RefKind)
	assert.Equal(t, DefaultStubsDir, cfg.StubsDir)
	assert.Equal(t, DefaultStubsSiteDir, cfg.StubsSiteDir)
	assert.Equal(t, []string{".md", ".html"}, cfg.SupportedFormats)
	require.NotNil(t, cfg.UseDirectoryURLs)
	assert.True(t, *cfg.UseDirectoryURLs)
}

func TestNormalizeFormatsGainLeadingDot(t *testing.T) {
	cfg := &Config{SupportedFormats: []string{"md", ".rst"}}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, []string{".md", ".rst"}, cfg.SupportedFormats)
}

func TestNormalizeRejectsUnknownRefKind(t *testing.T) {
	cfg := &Config{Main: MainWebsite{RefKind: "commit"}}
	assert.Error(t, cfg.Normalize())
}

func TestNormalizeRejectsEmptyFormatEntry(t *testing.T) {
	cfg := &Config{SupportedFormats: []string{".md", "  "}}
	assert.Error(t, cfg.Normalize())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stubdocs.yaml")
	content := []byte(`
repo: example/models
main_website:
  pattern: "v*"
  ref_kind: tag
preview_website:
  pattern: ""
  no_main: true
stubs_dir: docs/stub
stubs_site_dir: /configs/
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "example/models", cfg.Repo)
	assert.Equal(t, "v*", cfg.MainPattern())
	assert.True(t, cfg.Preview.NoMain)
	assert.Equal(t, "docs/stub", cfg.StubsDir)
	// Surrounding slashes are trimmed so URL joining stays predictable.
	assert.Equal(t, "configs", cfg.StubsSiteDir)
	// An explicit empty preview pattern survives normalization: it means
	// "include no preview refs", unlike an absent one which gets the default.
	assert.Equal(t, "", cfg.PreviewPattern())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stubdocs.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "OWNER/REPO", cfg.Repo)
	assert.Equal(t, DefaultMainPattern, cfg.MainPattern())
	assert.True(t, cfg.LocalStub)

	// Refuses to clobber without force.
	assert.Error(t, Init(path, false))
	assert.NoError(t, Init(path, true))
}

func TestNavPathDefaultsFromSiteDir(t *testing.T) {
	cfg := &Config{StubsSiteDir: "configs/stable"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, "Configs > Stable", cfg.NavPath())

	cfg.StubsNavPath = "Docs > Configurations"
	assert.Equal(t, "Docs > Configurations", cfg.NavPath())
}

func TestDefaultNavPathMultiByteSegment(t *testing.T) {
	// Title-casing operates on runes, not bytes.
	assert.Equal(t, "Übersicht > Konfiguration", DefaultNavPath("übersicht/konfiguration"))
}

func TestNavPathSegments(t *testing.T) {
	assert.Equal(t, []string{"Docs", "Configs"}, NavPathSegments("Docs > Configs"))
	assert.Equal(t, []string{"Root"}, NavPathSegments(" Root "))
	// Blank path yields one empty segment: root placement.
	assert.Equal(t, []string{""}, NavPathSegments(""))
}
