// Package styles holds the style-language policy: which files count as
// stylesheets, which resolutions target the aggregated entry point, how
// compiled specifiers map back to their source-language counterparts, and
// how generated documents are synthesized.
package styles

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// sourceExt is the style-language extension compiled stylesheets rewrite to.
const sourceExt = ".sass"

// Matcher classifies specifiers against one plugin configuration. It is
// immutable after construction and safe for concurrent use.
type Matcher struct {
	stylePackage string
	libraryRoot  string
	fileGlob     glob.Glob
}

// NewMatcher compiles the style-file pattern for the given canonical style
// package, library root, and extension list (without leading dots).
func NewMatcher(stylePackage, libraryRoot string, extensions []string) *Matcher {
	pattern := "*.{" + strings.Join(extensions, ",") + "}"
	return &Matcher{
		stylePackage: stylePackage,
		libraryRoot:  filepath.ToSlash(libraryRoot),
		fileGlob:     glob.MustCompile(pattern),
	}
}

// IsStyleFile reports whether the identifier names a stylesheet. Query
// decoration added by the host's id mangling is ignored.
func (m *Matcher) IsStyleFile(id string) bool {
	id, _, _ = strings.Cut(id, "?")
	return m.fileGlob.Match(path.Base(filepath.ToSlash(id)))
}

// MatchesEntry reports whether a resolution request targets the aggregated
// style entry: either the canonical style-package specifier itself, or a
// stylesheet reached from within the style package's own subtree.
func (m *Matcher) MatchesEntry(source, importer string) bool {
	if source == m.stylePackage || strings.HasPrefix(source, m.stylePackage+"/") {
		return true
	}
	if !m.IsStyleFile(source) {
		return false
	}
	probe := source
	if !path.IsAbs(filepath.ToSlash(source)) {
		probe = importer
	}
	return m.underLibraryRoot(probe)
}

// underLibraryRoot reports whether p sits inside the configured library root.
func (m *Matcher) underLibraryRoot(p string) bool {
	if m.libraryRoot == "" || p == "" {
		return false
	}
	p = filepath.ToSlash(p)
	return p == m.libraryRoot || strings.HasPrefix(p, m.libraryRoot+"/")
}

// ToSourceStyle rewrites a compiled stylesheet specifier to its
// style-language source counterpart. Specifiers that already name a source
// file come back unchanged.
func ToSourceStyle(specifier string) string {
	if rest, ok := strings.CutSuffix(specifier, ".css"); ok {
		return rest + sourceExt
	}
	return specifier
}

// ToCompiledStyle is the inverse rewrite, mapping a source specifier to the
// compiled form the host's default chain resolves.
func ToCompiledStyle(specifier string) string {
	ext := path.Ext(specifier)
	switch ext {
	case ".sass", ".scss", ".styl", ".less":
		return strings.TrimSuffix(specifier, ext) + ".css"
	}
	return specifier
}

// VirtualKey derives the registry key for a resolved stylesheet path. The
// key is the path relative to the library root with the extension dropped
// and slashes normalized, so repeated resolutions of the same file always
// land in the same registry slot.
func VirtualKey(resolved, libraryRoot string) string {
	resolved, _, _ = strings.Cut(resolved, "?")
	rel, err := filepath.Rel(libraryRoot, resolved)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(resolved)
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, path.Ext(rel))
}
