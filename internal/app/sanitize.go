package app

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodyPolicyOnce sync.Once
	bodyPolicy     *bluemonday.Policy

	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeBody keeps the basic formatting user-generated content may carry.
func sanitizeBody(raw string) string {
	bodyPolicyOnce.Do(func() {
		bodyPolicy = bluemonday.UGCPolicy()
	})
	return strings.TrimSpace(bodyPolicy.Sanitize(raw))
}

// sanitizeText strips every tag and returns plain text; templates escape it
// again on output.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}

// cleanOptions sanitizes submitted option values, dropping blanks and
// preserving order.
func cleanOptions(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if cleaned := sanitizeText(value); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
