// Package paths canonicalizes resource paths.
//
// A canonical path always starts with "/", never contains "//" and never
// ends with "/" unless it is exactly "/".
package paths

import (
	"strings"

	"github.com/agentstation/apisync/pkg/constants"
)

// Build joins a base path and a resource path into canonical form.
//
//	Build("", "")           == "/"
//	Build("base/", "/res/") == "/base/res"
//	Build("", "a//b")       == "/a/b"
func Build(basePath, resourcePath string) string {
	segments := append(Split(basePath), Split(resourcePath)...)
	if len(segments) == 0 {
		return constants.RootPath
	}
	return "/" + strings.Join(segments, "/")
}

// Split returns the non-empty segments of a path, in order.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Join appends a single path part to a canonical parent path.
func Join(parent, part string) string {
	return Build(parent, part)
}

// Parent returns the canonical parent of path. The parent of "/" is "/".
func Parent(path string) string {
	segments := Split(path)
	if len(segments) <= 1 {
		return constants.RootPath
	}
	return "/" + strings.Join(segments[:len(segments)-1], "/")
}

// Equal compares two path parts, treating every blank value as equal.
func Equal(a, b string) bool {
	if strings.TrimSpace(a) == "" && strings.TrimSpace(b) == "" {
		return true
	}
	return a == b
}

// IsRoot reports whether path is the canonical root.
func IsRoot(path string) bool {
	return path == constants.RootPath
}
