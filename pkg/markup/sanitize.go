package markup

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	labelPolicyOnce sync.Once
	labelPolicy     *bluemonday.Policy

	plainPolicyOnce sync.Once
	plainPolicy     *bluemonday.Policy
)

// Sanitize keeps the inline formatting labels and descriptions are allowed
// to carry and strips everything else.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(labelSanitizer().Sanitize(trimmed))
}

// PlainText strips every tag from raw, dropping script and style content,
// and returns unescaped text for attributes such as placeholder.
func PlainText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	plainPolicyOnce.Do(func() { plainPolicy = bluemonday.StrictPolicy() })
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(trimmed)))
}

func labelSanitizer() *bluemonday.Policy {
	labelPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("a", "b", "strong", "i", "em", "u", "code", "br", "small", "span", "p", "ul", "ol", "li")
		policy.AllowAttrs("class").OnElements("span", "code", "p")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href", "title").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		labelPolicy = policy
	})
	return labelPolicy
}
