package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusinessID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{name: "trailing slash", url: "https://www.bbb.org/us/ca/profile/billing/widget-name-12345/", wantID: "12345", wantOK: true},
		{name: "no trailing slash", url: "https://www.bbb.org/us/ca/profile/billing/widget-name-12345", wantID: "12345", wantOK: true},
		{name: "address suffix", url: "https://www.bbb.org/us/ca/profile/billing/widget-name-12345/addressId/9", wantID: "12345", wantOK: true},
		{name: "address suffix with slash", url: "https://www.bbb.org/us/tx/profile/x/acme-billing-0875-90012345/addressId/123/", wantID: "90012345", wantOK: true},
		{name: "query string ignored", url: "https://www.bbb.org/us/ca/profile/billing/widget-name-12345?ref=search", wantID: "12345", wantOK: true},
		{name: "relative path", url: "/us/ca/profile/billing/widget-name-777", wantID: "777", wantOK: true},
		{name: "no digit segment", url: "https://www.bbb.org/us/ca/profile/billing/widget-name/", wantOK: false},
		{name: "digits without dash", url: "https://www.bbb.org/search/12345", wantOK: false},
		{name: "id only in query", url: "https://www.bbb.org?x=foo-123", wantOK: false},
		{name: "id only in fragment", url: "https://www.bbb.org/#widget-name-123", wantOK: false},
		{name: "empty", url: "", wantOK: false},
		{name: "malformed", url: "://%%%", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := BusinessID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
