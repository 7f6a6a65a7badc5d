package modulerunner

import (
	"path"
	"strings"
)

// CanonicalURL normalizes a module identifier to canonical form: an absolute
// path rooted at the serving root with a leading '/', using forward slashes
// regardless of the host's separator conventions.
func CanonicalURL(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// ResolveRelative resolves a specifier against the directory of the
// importing module's URL. Absolute specifiers are canonicalized as-is.
func ResolveRelative(specifier, importerURL string) string {
	if strings.HasPrefix(specifier, "/") {
		return CanonicalURL(specifier)
	}
	dir := path.Dir(CanonicalURL(importerURL))
	return CanonicalURL(path.Join(dir, specifier))
}

// IsBareSpecifier reports whether a specifier names an external package
// rather than a project-relative module.
func IsBareSpecifier(specifier string) bool {
	if specifier == "" {
		return false
	}
	if strings.HasPrefix(specifier, "/") ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") ||
		specifier == "." || specifier == ".." {
		return false
	}
	// Windows-style absolute paths are not bare.
	if len(specifier) > 1 && specifier[1] == ':' {
		return false
	}
	return true
}
