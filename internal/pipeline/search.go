package pipeline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/bbb-collector/internal/model"
)

const (
	// DefaultSearchURL is the directory search used when a caller names none.
	DefaultSearchURL = "https://www.bbb.org/search?filter_category=60548-100&filter_category=60142-000&filter_ratings=A&find_country=USA&find_text=Medical+Billing"
	// DefaultTotalPages is the number of result pages crawled by default.
	DefaultTotalPages = 3
	// MaxTotalPages bounds the pages a single run may crawl.
	MaxTotalPages = 50

	searchEndpoint = "https://www.bbb.org/search"
)

// SearchPageURL returns base with its page query parameter set to page,
// replacing any existing value. A base that is not an absolute URL is taken
// as a search term for the directory's country-wide search.
func SearchPageURL(base string, page int) (string, error) {
	if page < 1 {
		return "", &model.ConfigurationError{Reason: fmt.Sprintf("page must be >= 1, got %d", page)}
	}

	u, err := searchBase(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func searchBase(base string) (*url.URL, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil, &model.ConfigurationError{Reason: "search URL is empty"}
	}

	if !strings.Contains(base, "://") {
		u, _ := url.Parse(searchEndpoint)
		q := url.Values{}
		q.Set("find_country", "USA")
		q.Set("find_text", base)
		u.RawQuery = q.Encode()
		return u, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("invalid search URL %q: %v", base, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("invalid search URL %q: need an http(s) URL with a host", base)}
	}
	return u, nil
}
