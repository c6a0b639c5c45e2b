package score

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/ppiankov/compliance-radar/internal/util"
)

// DefaultViolenceIndicators are word prefixes that mark a narrative as
// involving violence. Prefixes such as "secuestr" and "extort" cover all
// inflections. Entries are folded (lowercase, no accents).
var DefaultViolenceIndicators = []string{
	// English
	"weapon", "threat", "shot", "blow", "strike", "intimidat", "kidnap", "extort",
	// Spanish
	"arma", "amenaza", "disparo", "golpe", "intimidacion", "secuestr", "extors",
}

// DefaultIndicatorExclusions are words that start with an indicator but do
// not describe violence. "armada" is the Navy.
var DefaultIndicatorExclusions = []string{
	"armada", "armadas", "armador", "armadores", "armario", "armarios",
}

// IndicatorMatcher finds indicator prefixes in the folded text. An
// indicator counts only at the start of a word, and never inside an
// excluded word.
type IndicatorMatcher struct {
	mu         sync.Mutex
	matcher    *ahocorasick.Matcher
	keywords   []string
	exclusions map[string]bool
}

// NewIndicatorMatcher builds the automaton for the given keywords
func NewIndicatorMatcher(keywords []string) *IndicatorMatcher {
	normalized := make([]string, 0, len(keywords))
	seen := make(map[string]bool)
	for _, kw := range keywords {
		kw = util.Fold(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		normalized = append(normalized, kw)
	}

	m := &IndicatorMatcher{keywords: normalized, exclusions: make(map[string]bool)}
	if len(normalized) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(normalized)
	}
	return m
}

// WithExclusions adds words that never count as an indicator
func (m *IndicatorMatcher) WithExclusions(words ...string) *IndicatorMatcher {
	for _, w := range words {
		if w = util.Fold(strings.TrimSpace(w)); w != "" {
			m.exclusions[w] = true
		}
	}
	return m
}

// Find returns the distinct indicators present in text, sorted
func (m *IndicatorMatcher) Find(text string) []string {
	if m.matcher == nil || text == "" {
		return nil
	}

	folded := util.Fold(text)

	m.mu.Lock()
	hits := m.matcher.Match([]byte(folded))
	m.mu.Unlock()

	found := make([]string, 0, len(hits))
	for _, idx := range hits {
		if idx < len(m.keywords) && m.occursAtWordStart(folded, m.keywords[idx]) {
			found = append(found, m.keywords[idx])
		}
	}
	sort.Strings(found)
	return found
}

// Contains reports whether any indicator occurs in text
func (m *IndicatorMatcher) Contains(text string) bool {
	return len(m.Find(text)) > 0
}

// occursAtWordStart reports whether keyword begins some word of folded
// that is not excluded
func (m *IndicatorMatcher) occursAtWordStart(folded, keyword string) bool {
	for from := 0; from < len(folded); {
		i := strings.Index(folded[from:], keyword)
		if i < 0 {
			return false
		}
		pos := from + i
		from = pos + len(keyword)

		if pos > 0 {
			prev, _ := utf8.DecodeLastRuneInString(folded[:pos])
			if isWordRune(prev) {
				continue
			}
		}
		if !m.exclusions[wordAt(folded, pos)] {
			return true
		}
	}
	return false
}

// wordAt returns the word of s starting at byte offset pos
func wordAt(s string, pos int) string {
	end := strings.IndexFunc(s[pos:], func(r rune) bool { return !isWordRune(r) })
	if end < 0 {
		return s[pos:]
	}
	return s[pos : pos+end]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
