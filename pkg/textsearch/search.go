// Package textsearch locates query text inside recognition results.
package textsearch

import (
	"errors"
	"regexp"
	"strings"

	"github.com/offlinefirst/deskpilot/pkg/vision"
)

// ErrEmptyQuery rejects queries with no searchable content before any
// capture or recognition work happens.
var ErrEmptyQuery = errors.New("search query must not be empty")

// Match is one located occurrence. Matches synthesized from box-free results
// carry a zero-sized rectangle and the overall confidence.
type Match struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Find returns every occurrence of query in the recognition result. Zero
// matches is a valid outcome, not an error.
func Find(result vision.Result, query string, caseSensitive, wholeWord bool) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	match, err := newMatcher(query, caseSensitive, wholeWord)
	if err != nil {
		return nil, err
	}

	if len(result.Boxes) > 0 {
		var matches []Match
		for _, box := range result.Boxes {
			if match(box.Text) {
				matches = append(matches, Match{
					Text:       box.Text,
					X:          box.X,
					Y:          box.Y,
					Width:      box.Width,
					Height:     box.Height,
					Confidence: box.Confidence,
				})
			}
		}
		return matches, nil
	}

	// Without spatial detail the full text still answers found/not-found.
	if match(result.Text) {
		return []Match{{Text: query, Confidence: result.Confidence}}, nil
	}
	return nil, nil
}

// newMatcher builds the predicate for one search. Whole-word mode quotes the
// query so metacharacters like "$" in "price: $19.99" match literally.
func newMatcher(query string, caseSensitive, wholeWord bool) (func(string) bool, error) {
	if !wholeWord {
		if caseSensitive {
			return func(text string) bool { return strings.Contains(text, query) }, nil
		}
		folded := strings.ToLower(query)
		return func(text string) bool { return strings.Contains(strings.ToLower(text), folded) }, nil
	}

	pattern := `\b` + regexp.QuoteMeta(query) + `\b`
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return rx.MatchString, nil
}
