package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Default values applied during normalization. They mirror the conventions
// used by the repositories this tool targets: release tags feed the main
// website, development branches feed preview builds.
const (
	DefaultMainPattern    = "release-*"
	DefaultPreviewPattern = "dev-*"
	DefaultMainBranch     = "main"
	DefaultStubsDir       = "documentation"
	DefaultStubsSiteDir   = "configurations"
)

// DefaultSupportedFormats lists the stub file extensions recognized out of the box.
var DefaultSupportedFormats = []string{".md", ".html"}

// GitRefKind enumerates which kind of remote references a website section draws from.
type GitRefKind string

const (
	RefKindBranch GitRefKind = "branch"
	RefKindTag    GitRefKind = "tag"
	RefKindAll    GitRefKind = "all"
)

// IsValid returns true if the ref kind is recognized.
func (k GitRefKind) IsValid() bool {
	switch k {
	case RefKindBranch, RefKindTag, RefKindAll:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ref kind.
func (k GitRefKind) String() string { return string(k) }

// MainWebsite configures which references contribute stubs to the main website.
// Pattern is a pointer so an explicit empty value ("include nothing") can be
// told apart from an absent one (use the default).
type MainWebsite struct {
	Pattern *string    `yaml:"pattern,omitempty"`
	RefKind GitRefKind `yaml:"ref_kind,omitempty"`
	// Branch is the branch a main-website build is expected to be checked out
	// on. Empty means "resolve the default branch from the remote".
	Branch string `yaml:"branch,omitempty"`
}

// PreviewWebsite configures which references contribute stubs to preview builds.
type PreviewWebsite struct {
	Pattern *string    `yaml:"pattern,omitempty"`
	RefKind GitRefKind `yaml:"ref_kind,omitempty"`
	// NoMain suppresses the main-website stubs that preview builds
	// otherwise include alongside their own.
	NoMain bool `yaml:"no_main,omitempty"`
}

// Config is the top-level configuration for a stubdocs build.
type Config struct {
	// Repo is the hosting repository as OWNER/REPO, an https URL, or an ssh
	// URL. Empty means "derive from the local checkout's origin remote".
	Repo    string         `yaml:"repo,omitempty"`
	Main    MainWebsite    `yaml:"main_website,omitempty"`
	Preview PreviewWebsite `yaml:"preview_website,omitempty"`

	// StubsDir is the path inside the repository (at every reference) that
	// holds exactly one stub document.
	StubsDir string `yaml:"stubs_dir,omitempty"`
	// StubsSiteDir is the parent URL under which stub pages are published.
	StubsSiteDir string `yaml:"stubs_site_dir,omitempty"`
	// StubsNavPath places stub pages in the navigation tree, segments
	// separated by '>'. Empty derives a default from StubsSiteDir.
	StubsNavPath string `yaml:"stubs_nav_path,omitempty"`

	SupportedFormats []string `yaml:"supported_formats,omitempty"`

	// LocalStub includes the working tree's own stub directory so edits are
	// reflected without a remote round trip.
	LocalStub bool `yaml:"local_stub,omitempty"`

	SiteDir          string `yaml:"site_dir,omitempty"`
	UseDirectoryURLs *bool  `yaml:"use_directory_urls,omitempty"`
}

// Load reads and normalizes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Init writes an example configuration file to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	mainPattern := DefaultMainPattern
	previewPattern := DefaultPreviewPattern
	exampleConfig := Config{
		Repo: "OWNER/REPO",
		Main: MainWebsite{
			Pattern: &mainPattern,
			RefKind: RefKindTag,
			Branch:  "main",
		},
		Preview: PreviewWebsite{
			Pattern: &previewPattern,
			RefKind: RefKindBranch,
		},
		StubsDir:     DefaultStubsDir,
		StubsSiteDir: DefaultStubsSiteDir,
		LocalStub:    true,
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", configPath, err)
	}
	return nil
}

// Normalize fills in defaults and validates the configuration in place.
func (c *Config) Normalize() error {
	c.Repo = strings.TrimSpace(c.Repo)

	if c.Main.Pattern == nil {
		pattern := DefaultMainPattern
		c.Main.Pattern = &pattern
	}
	if c.Main.RefKind == "" {
		c.Main.RefKind = RefKindTag
	}
	if !c.Main.RefKind.IsValid() {
		return fmt.Errorf("main_website.ref_kind: unknown value %q", c.Main.RefKind)
	}
	c.Main.Branch = strings.TrimSpace(c.Main.Branch)

	if c.Preview.Pattern == nil {
		pattern := DefaultPreviewPattern
		c.Preview.Pattern = &pattern
	}
	if c.Preview.RefKind == "" {
		c.Preview.RefKind = RefKindBranch
	}
	if !c.Preview.RefKind.IsValid() {
		return fmt.Errorf("preview_website.ref_kind: unknown value %q", c.Preview.RefKind)
	}

	if c.StubsDir = strings.TrimSpace(c.StubsDir); c.StubsDir == "" {
		c.StubsDir = DefaultStubsDir
	}
	if c.StubsSiteDir = strings.TrimSpace(c.StubsSiteDir); c.StubsSiteDir == "" {
		c.StubsSiteDir = DefaultStubsSiteDir
	}
	c.StubsSiteDir = strings.Trim(c.StubsSiteDir, "/")

	if len(c.SupportedFormats) == 0 {
		c.SupportedFormats = append([]string(nil), DefaultSupportedFormats...)
	}
	for i, format := range c.SupportedFormats {
		format = strings.TrimSpace(format)
		if format == "" {
			return fmt.Errorf("supported_formats[%d]: empty entry", i)
		}
		if !strings.HasPrefix(format, ".") {
			format = "." + format
		}
		c.SupportedFormats[i] = format
	}

	if c.SiteDir == "" {
		c.SiteDir = "site"
	}
	if c.UseDirectoryURLs == nil {
		v := true
		c.UseDirectoryURLs = &v
	}
	return nil
}

// MainPattern returns the normalized main-website ref pattern.
func (c *Config) MainPattern() string {
	if c.Main.Pattern == nil {
		return ""
	}
	return *c.Main.Pattern
}

// PreviewPattern returns the normalized preview-website ref pattern.
func (c *Config) PreviewPattern() string {
	if c.Preview.Pattern == nil {
		return ""
	}
	return *c.Preview.Pattern
}

// NavPath returns the configured navigation path, falling back to a path
// derived from StubsSiteDir ("configs/v1" becomes "Configs > V1").
func (c *Config) NavPath() string {
	if strings.TrimSpace(c.StubsNavPath) != "" {
		return c.StubsNavPath
	}
	return DefaultNavPath(c.StubsSiteDir)
}

var segmentCaser = cases.Title(language.English)

// DefaultNavPath derives a navigation path from a parent URL by title-casing
// each path segment.
func DefaultNavPath(parentURL string) string {
	segments := strings.Split(strings.Trim(parentURL, "/"), "/")
	titled := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		titled = append(titled, segmentCaser.String(seg))
	}
	return strings.Join(titled, " > ")
}

// NavPathSegments splits a '>'-separated navigation path into trimmed segments.
// A blank path yields a single empty segment, which callers treat as root
// placement.
func NavPathSegments(navPath string) []string {
	parts := strings.Split(navPath, ">")
	segments := make([]string, len(parts))
	for i, part := range parts {
		segments[i] = strings.TrimSpace(part)
	}
	return segments
}
