package chat

import (
	"regexp"
	"strings"
	"sync"
)

// filterMask replaces every filtered word in a message body.
const filterMask = "***"

var emotePattern = regexp.MustCompile(`^(\s*:[a-zA-Z0-9_]+:\s*)+$`)

// WordFilter redacts banned words from message bodies. Matching is
// case-insensitive and whole-word; matched words are replaced, the message
// itself is still delivered.
type WordFilter struct {
	global []string

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewWordFilter creates a filter with the global banned-word list. Room
// specific words are merged in per call.
func NewWordFilter(globalWords []string) *WordFilter {
	words := make([]string, 0, len(globalWords))
	for _, w := range globalWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return &WordFilter{
		global:   words,
		compiled: make(map[string]*regexp.Regexp),
	}
}

// Apply redacts every banned word in body, using the union of the global
// list and roomWords. Returns the resulting body and whether it changed.
func (f *WordFilter) Apply(body string, roomWords []string) (string, bool) {
	changed := false
	for _, word := range f.global {
		body, changed = f.replace(body, word, changed)
	}
	for _, word := range roomWords {
		if word = strings.TrimSpace(word); word != "" {
			body, changed = f.replace(body, word, changed)
		}
	}
	return body, changed
}

func (f *WordFilter) replace(body, word string, changed bool) (string, bool) {
	re := f.pattern(word)
	if !re.MatchString(body) {
		return body, changed
	}
	return re.ReplaceAllString(body, filterMask), true
}

func (f *WordFilter) pattern(word string) *regexp.Regexp {
	f.mu.Lock()
	defer f.mu.Unlock()

	if re, ok := f.compiled[word]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	f.compiled[word] = re
	return re
}

// isEmoteOnly reports whether body consists solely of :emote: tokens and
// whitespace.
func isEmoteOnly(body string) bool {
	return emotePattern.MatchString(body)
}
