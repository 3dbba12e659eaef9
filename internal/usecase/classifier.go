package usecase

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
	"github.com/eliteGoblin/focusd/content_mon/internal/policy"
)

// Reason strings shown to the guardian.
const (
	reasonKeywords = "Palabras clave inapropiadas detectadas: "
	reasonPhrases  = "Frases sospechosas detectadas: "
	reasonPatterns = "Patrones sospechosos detectados en el contenido"
	reasonReview   = "Descripción muy breve o vaga, requiere verificación manual"
	reasonClean    = "Contenido analizado sin detectar elementos inapropiados"
)

// shortTextLength is the length under which an unmatched text is flagged for review.
const shortTextLength = 20

// LexicalClassifier implements domain.Classifier with keyword, phrase and
// regex heuristics. It holds no mutable state and is safe for concurrent use.
type LexicalClassifier struct {
	vocab *policy.Vocabulary
}

// NewClassifier creates a classifier over the built-in screen vocabulary.
func NewClassifier() *LexicalClassifier {
	return NewClassifierWithVocabulary(policy.MustCompile(policy.NewScreenPolicy()))
}

// NewClassifierWithVocabulary creates a classifier over a custom vocabulary.
func NewClassifierWithVocabulary(v *policy.Vocabulary) *LexicalClassifier {
	return &LexicalClassifier{vocab: v}
}

// Classify scores text. Keyword, phrase and regex channels combine with
// max/min rules so that the same input always yields the same confidence.
func (c *LexicalClassifier) Classify(text string) domain.ClassificationResult {
	lower := strings.ToLower(text)

	var keywords, phrases []string
	for _, k := range c.vocab.Keywords {
		if strings.Contains(lower, k) {
			keywords = append(keywords, k)
		}
	}
	for _, p := range c.vocab.Phrases {
		if strings.Contains(lower, p) {
			phrases = append(phrases, p)
		}
	}

	var (
		confidence float64
		flagged    bool
		reasons    []string
	)

	if len(keywords) > 0 {
		flagged = true
		confidence = math.Min(0.9, 0.3+0.2*float64(len(keywords)))
		reasons = append(reasons, reasonKeywords+strings.Join(keywords, ", "))
	}

	if len(phrases) > 0 {
		flagged = true
		confidence = math.Max(confidence, math.Min(0.8, 0.4+0.15*float64(len(phrases))))
		reasons = append(reasons, reasonPhrases+strings.Join(phrases, ", "))
	}

	for _, re := range c.vocab.Patterns {
		if re.MatchString(lower) {
			flagged = true
			confidence = math.Max(confidence, 0.6)
			reasons = append(reasons, reasonPatterns)
			break
		}
	}

	if !flagged && utf8.RuneCountInString(lower) < shortTextLength {
		confidence = 0.3
		reasons = append(reasons, reasonReview)
	}

	reason := reasonClean
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ". ")
	}

	return domain.ClassificationResult{
		IsInappropriate: flagged,
		Confidence:      math.Round(confidence*100) / 100,
		Reason:          reason,
	}
}

// Ensure LexicalClassifier implements domain.Classifier.
var _ domain.Classifier = (*LexicalClassifier)(nil)
