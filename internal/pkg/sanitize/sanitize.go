package sanitize

import (
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Placeholder replaces any link that fails sanitizing.
const Placeholder = "#"

var blockedSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "about:"}

// URL returns raw when it is safe to place in an e-mail link, or Placeholder otherwise.
// Relative paths are kept, bare hosts get an https:// prefix, and when allowed is non-empty
// the host must equal an allowed domain or be a subdomain of one.
func URL(raw string, allowed []string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return Placeholder
	}
	lower := strings.ToLower(u)
	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme) {
			slog.Warn("blocked dangerous url scheme", "scheme", scheme)
			return Placeholder
		}
	}

	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
			return u
		}
		u = "https://" + strings.TrimLeft(u, "/")
	}

	parsed, err := url.Parse(u)
	if err != nil || parsed.Hostname() == "" {
		return Placeholder
	}
	if len(allowed) > 0 && !hostAllowed(strings.ToLower(parsed.Hostname()), allowed) {
		slog.Warn("url host not in allow-list", "host", parsed.Hostname())
		return Placeholder
	}
	return parsed.String()
}

func hostAllowed(host string, allowed []string) bool {
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Markup cleans producer-supplied rich text for the HTML body. The result is safe to
// embed without further escaping.
type Markup struct {
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewMarkup() *Markup {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Markup{ugc: p, strict: bluemonday.StrictPolicy()}
}

// HTML keeps structural tags and drops scripts, handlers and unsafe links.
func (m *Markup) HTML(s string) string {
	return strings.TrimSpace(m.ugc.Sanitize(s))
}

// Text strips every tag for the plain-text body.
func (m *Markup) Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(m.strict.Sanitize(s)))
}
