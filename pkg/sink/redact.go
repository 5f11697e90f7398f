package sink

import (
	"regexp"
	"strings"

	"github.com/offlinefirst/deskpilot/pkg/action"
)

const mask = "[REDACTED]"

// Redactor filters sensitive content out of observations before they leave the
// process.
//
// The zero value masks sensitive-flagged text but applies no patterns.
type Redactor struct {
	patterns []*regexp.Regexp
}

// Built-in expressions selectable by name in the custom list.
var namedPatterns = map[string]string{
	"email": `(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`,
	"cc16":  `\b(?:\d[ -]?){16}\b`,
	"jwt":   `eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9._-]+\.[A-Za-z0-9._-]+`,
}

// NewRedactor constructs a redaction pipeline. When redactEmails is true a
// built-in expression masks common email formats; custom entries may be either
// a named built-in or a regular expression.
func NewRedactor(redactEmails bool, custom []string) (Redactor, error) {
	patterns := make([]*regexp.Regexp, 0, len(custom)+1)

	if redactEmails {
		rx, err := regexp.Compile(namedPatterns["email"])
		if err != nil {
			return Redactor{}, err
		}
		patterns = append(patterns, rx)
	}

	for _, expr := range custom {
		trimmed := strings.TrimSpace(expr)
		if trimmed == "" {
			continue
		}
		candidate := trimmed
		if mapped, ok := namedPatterns[strings.ToLower(trimmed)]; ok {
			candidate = mapped
		}
		rx, err := regexp.Compile(candidate)
		if err != nil {
			return Redactor{}, err
		}
		patterns = append(patterns, rx)
	}

	return Redactor{patterns: patterns}, nil
}

// ApplyString redacts sensitive content from a string.
func (r Redactor) ApplyString(input string) string {
	redacted := input
	for _, rx := range r.patterns {
		redacted = rx.ReplaceAllString(redacted, mask)
	}
	return redacted
}

// ApplyAction returns a copy of the action with text payloads cleaned.
// Sensitive-flagged typing is fully masked; other text fields pass through the
// pattern pipeline. Actions without free text are returned unchanged.
func (r Redactor) ApplyAction(a action.Action) action.Action {
	switch v := a.(type) {
	case action.TypeText:
		if v.Sensitive {
			v.Text = mask
		} else {
			v.Text = r.ApplyString(v.Text)
		}
		return v
	case action.PasteText:
		v.Text = r.ApplyString(v.Text)
		return v
	default:
		return a
	}
}
