package articles

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from user input. Single-line fields lose all tags;
// long-form text keeps the safe UGC subset.
type Sanitizer struct {
	plain *bluemonday.Policy
	rich  *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer with the default policies.
func NewSanitizer() *Sanitizer {
	rich := bluemonday.UGCPolicy()
	rich.RequireNoFollowOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)
	return &Sanitizer{plain: bluemonday.StrictPolicy(), rich: rich}
}

// maxPlainPasses bounds the strip-and-decode loop in Plain.
const maxPlainPasses = 8

// Plain returns v without any markup, trimmed. Entities are decoded, and
// markup that decoding reveals is stripped in turn until the text is stable.
// Input that does not settle keeps its escaped form.
func (s *Sanitizer) Plain(v string) string {
	cur := v
	for i := 0; i < maxPlainPasses; i++ {
		next := html.UnescapeString(s.plain.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	return strings.TrimSpace(s.plain.Sanitize(cur))
}

// Rich returns v restricted to the UGC policy, trimmed.
func (s *Sanitizer) Rich(v string) string {
	return strings.TrimSpace(s.rich.Sanitize(v))
}
