// Package sanitize strips user supplied HTML down to a small formatting set.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "strong", "i", "em", "u", "pre", "code",
		"ul", "ol", "li", "blockquote", "h1", "h2", "h3")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// HTML returns s with disallowed markup removed and surrounding space trimmed.
func HTML(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

