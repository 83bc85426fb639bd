package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Page is the model-facing digest of a loaded document.
type Page struct {
	URL   string
	Title string
	Text  string
	Links []Link
}

// Link is an anchor found on the page, resolved to an absolute URL.
type Link struct {
	Text string
	Href string
}

// Digest parses raw HTML into visible text and absolute links. Script, style
// and other non-content nodes are dropped before text is collected.
func Digest(html, pageURL string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, eris.Wrap(err, "extract: parse html")
	}

	base, _ := url.Parse(pageURL)

	doc.Find("script, style, noscript, svg, iframe, template").Remove()

	page := Page{
		URL:   pageURL,
		Title: collapse(doc.Find("title").First().Text()),
		Text:  collapse(doc.Find("body").Text()),
	}

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		page.Links = append(page.Links, Link{Text: collapse(s.Text()), Href: abs})
	})

	return page, nil
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Render formats the page for a prompt, truncating the text portion to
// maxChars when maxChars > 0.
func (p Page) Render(maxChars int) string {
	var b strings.Builder
	b.WriteString("URL: ")
	b.WriteString(p.URL)
	b.WriteString("\nTitle: ")
	b.WriteString(p.Title)
	b.WriteString("\n\n--- PAGE TEXT ---\n")
	text := p.Text
	if maxChars > 0 && len(text) > maxChars {
		n := maxChars
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	b.WriteString(text)
	if len(p.Links) > 0 {
		b.WriteString("\n\n--- LINKS ---\n")
		for _, l := range p.Links {
			b.WriteString("- [")
			b.WriteString(l.Text)
			b.WriteString("](")
			b.WriteString(l.Href)
			b.WriteString(")\n")
		}
	}
	return b.String()
}
