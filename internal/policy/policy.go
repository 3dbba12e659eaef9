// Package policy implements the Strategy pattern for content vocabularies.
// Each policy (screen classifier, typing monitor) defines what text is inappropriate.
package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// VocabularyPolicy defines the strategy interface for a content vocabulary.
type VocabularyPolicy interface {
	// ID returns unique identifier (e.g., "screen", "typing").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Keywords returns single terms matched as substrings (or exact tokens).
	Keywords() []string

	// Phrases returns multi-word phrases matched as substrings.
	Phrases() []string

	// Patterns returns regular expression heuristics, tried in order.
	Patterns() []string
}

// Vocabulary is the compiled, normalized form of a VocabularyPolicy.
// Keywords and phrases are lower-cased and keep their order and repeats;
// the classifier scores every listed occurrence.
type Vocabulary struct {
	ID       string
	Name     string
	Keywords []string
	Phrases  []string
	Patterns []*regexp.Regexp

	keywordSet map[string]struct{}
}

// Compile converts a VocabularyPolicy into a Vocabulary.
func Compile(p VocabularyPolicy) (*Vocabulary, error) {
	v := &Vocabulary{
		ID:       p.ID(),
		Name:     p.Name(),
		Keywords: normalize(p.Keywords()),
		Phrases:  normalize(p.Phrases()),
	}

	for _, src := range p.Patterns() {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("policy %s: invalid pattern %q: %w", p.ID(), src, err)
		}
		v.Patterns = append(v.Patterns, re)
	}

	v.keywordSet = make(map[string]struct{}, len(v.Keywords))
	for _, k := range v.Keywords {
		v.keywordSet[k] = struct{}{}
	}
	return v, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
// Built-in policies are constant, so a failure is a programming error.
func MustCompile(p VocabularyPolicy) *Vocabulary {
	v, err := Compile(p)
	if err != nil {
		panic(err)
	}
	return v
}

// HasKeyword reports whether token is exactly one of the keywords.
func (v *Vocabulary) HasKeyword(token string) bool {
	_, ok := v.keywordSet[token]
	return ok
}

// FirstKeywordIn returns the first keyword (in vocabulary order) contained in text.
func (v *Vocabulary) FirstKeywordIn(text string) (string, bool) {
	for _, k := range v.Keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

func normalize(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
