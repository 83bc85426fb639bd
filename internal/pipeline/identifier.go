package pipeline

import (
	"net/url"
	"regexp"
)

// businessIDPattern matches the trailing "-<digits>" slug segment of a detail
// page path, tolerating an "/addressId/<digits>" suffix.
var businessIDPattern = regexp.MustCompile(`-(\d+)(?:/addressId/\d+)?/?$`)

// BusinessID derives the directory's stable business identifier from a detail
// page URL. ok is false when the URL is empty or carries no identifier.
func BusinessID(raw string) (id string, ok bool) {
	if raw == "" {
		return "", false
	}

	// Only an unparseable URL is matched as a whole; otherwise the query and
	// fragment never contribute an identifier.
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}

	m := businessIDPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}
