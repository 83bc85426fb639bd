package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sells-group/bbb-collector/internal/extract"
	"github.com/sells-group/bbb-collector/internal/model"
)

// fakeSite serves search pages and detail pages to fakeSessions.
type fakeSite struct {
	mu sync.Mutex

	// search maps the page query value to candidate URLs.
	search map[string][]string
	// navFail and extractFail are keyed by URL.
	navFail     map[string]bool
	extractFail map[string]bool
	openErr     error

	opens    int
	closes   int
	active   int
	maxOpen  int
	visited  []string
	sessions []*fakeSession
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		search:      map[string][]string{},
		navFail:     map[string]bool{},
		extractFail: map[string]bool{},
	}
}

func (f *fakeSite) Open(_ context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	f.active++
	if f.active > f.maxOpen {
		f.maxOpen = f.active
	}
	s := &fakeSession{site: f}
	f.sessions = append(f.sessions, s)
	return s, nil
}

type fakeSession struct {
	site    *fakeSite
	current string
	closed  bool
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	s.site.visited = append(s.site.visited, url)
	if s.site.navFail[url] {
		return &model.NavigationError{URL: url, Err: context.DeadlineExceeded}
	}
	s.current = url
	return nil
}

func (s *fakeSession) Extract(_ context.Context, _ string, schema extract.Schema, out any) error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	if s.site.extractFail[s.current] {
		return &model.ExtractionError{Schema: schema.Name, Err: errors.New("validation failed")}
	}

	switch v := out.(type) {
	case *searchResults:
		page := s.current[strings.LastIndex(s.current, "page=")+len("page="):]
		for _, u := range s.site.search[page] {
			v.Businesses = append(v.Businesses, model.CandidateURL{URL: u})
		}
	case *detailFields:
		v.Name = "Business at " + s.current
		v.Phone = model.StringPtr("+14155551234")
		v.AccreditationStatus = "true"
	default:
		return fmt.Errorf("unexpected decode target %T", out)
	}
	return nil
}

func (s *fakeSession) Close(_ context.Context) {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.site.closes++
	s.site.active--
}

var testCreds = model.Credentials{
	BrowserAPIKey:    "bb-key",
	BrowserProjectID: "proj",
	ModelAPIKey:      "sk-test",
}

func testOptions() Options {
	return Options{BusinessesPerSession: 15, NavigationTimeout: time.Second}
}

func detailURL(slug string, id int) string {
	return fmt.Sprintf("https://www.bbb.org/us/ca/san-jose/profile/billing/%s-%d", slug, id)
}
