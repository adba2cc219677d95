package navigation

import (
	"path"
	"strings"
)

// cleanPath drops query, fragment and trailing slashes and resolves dot
// segments so "/events/../workers" cannot borrow /events' permission.
func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func underPath(p, base string) bool {
	return p == base || strings.HasPrefix(p, base+"/")
}

// SafeReturnPath accepts only local absolute paths as return-to targets.
func SafeReturnPath(p string) (string, bool) {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return "", false
	}
	return p, true
}
