package browser

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bbb-collector/internal/extract"
)

// BlockType describes the kind of anti-bot page detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockEmpty      BlockType = "empty"
)

// ErrBlocked is wrapped by extraction failures on anti-bot pages.
var ErrBlocked = eris.New("browser: page blocked")

// shellTextLimit is the visible text size below which a page counts as an
// interstitial rather than content.
const shellTextLimit = 1500

// DetectBlock inspects a rendered page digest for challenge or captcha
// interstitials. Captcha markers only count on near-empty pages, since real
// profile pages can embed a captcha widget in a form.
func DetectBlock(page extract.Page) BlockType {
	title := strings.ToLower(page.Title)
	text := strings.ToLower(page.Text)

	if strings.Contains(title, "just a moment") ||
		strings.Contains(title, "attention required") ||
		strings.Contains(text, "checking your browser") ||
		strings.Contains(text, "cloudflare") && strings.Contains(text, "ray id") {
		return BlockCloudflare
	}

	if len(text) < shellTextLimit {
		if strings.Contains(text, "captcha") ||
			strings.Contains(text, "verify you are human") ||
			strings.Contains(text, "are you a robot") {
			return BlockCaptcha
		}
		if strings.TrimSpace(text) == "" && len(page.Links) == 0 {
			return BlockEmpty
		}
	}

	return BlockNone
}
