package sitehandler

import (
	"io/fs"
	"path"
	"strings"
)

// resolvePath maps a URL path to a file within the asset root.
// Traversal attempts and ambiguous paths resolve to not-found rather
// than anything outside the root.
func resolvePath(urlPath string, fsys fs.FS) (file string, ok bool) {
	p := urlPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	// basic rejection of ambiguous/unsafe paths
	if strings.Contains(p, "\x00") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
		return "", false
	}
	if hasDotSegments(p) {
		return "", false
	}

	clean := path.Clean(p)
	if clean == "/" {
		return "", false
	}

	name := strings.TrimPrefix(clean, "/")
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

// hasDotSegments reports whether any path segment is exactly "." or
// "..". Dotfiles and runs of three or more dots are regular names.
func hasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
