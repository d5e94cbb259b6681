// Package relevance scores candidate articles against a keyword set.
package relevance

import (
	"strings"
)

// Weights tunes the scoring formula. The exact numbers are configuration,
// not contract: whatever the weights, scores stay deterministic and bounded
// to [0,100].
type Weights struct {
	TitleHit     float64 // per occurrence of a keyword in the title
	ContentHit   float64 // per occurrence of a keyword in the content
	PhraseBonus  float64 // keyword appears in content at all
	TitleBonus   float64 // keyword appears in title at all
	LengthBonus  float64 // content has a reasonable word count
	TitleQuality float64 // article carries a real title
	MinWords     int     // lower bound for the length bonus
	MaxWords     int     // upper bound for the length bonus
}

// DefaultWeights returns the tuning used in production.
func DefaultWeights() Weights {
	return Weights{
		TitleHit:     25,
		ContentHit:   5,
		PhraseBonus:  10,
		TitleBonus:   20,
		LengthBonus:  10,
		TitleQuality: 5,
		MinWords:     100,
		MaxWords:     10000,
	}
}

// Input is the scored view of a candidate article. Content is expected to
// already be normalized plain text.
type Input struct {
	Title   string
	Content string
}

// Scorer computes relevance scores. Zero dependencies, no I/O: the same
// inputs always produce the same score.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score rates an article against a keyword set on a 0-100 scale.
// An empty keyword set returns nil (unscored, not zero); empty content
// scores 0.
func (s *Scorer) Score(article Input, keywords []string) *float64 {
	if len(keywords) == 0 {
		return nil
	}

	zero := 0.0
	if strings.TrimSpace(article.Content) == "" {
		return &zero
	}

	content := strings.ToLower(article.Content)
	title := strings.ToLower(article.Title)
	w := s.weights

	var score float64
	for _, keyword := range keywords {
		kw := strings.ToLower(strings.TrimSpace(keyword))
		if kw == "" {
			continue
		}

		score += float64(strings.Count(title, kw)) * w.TitleHit
		score += float64(strings.Count(content, kw)) * w.ContentHit

		if strings.Contains(content, kw) {
			score += w.PhraseBonus
		}
		if strings.Contains(title, kw) {
			score += w.TitleBonus
		}
	}

	words := len(strings.Fields(content))
	if words > w.MinWords && words < w.MaxWords {
		score += w.LengthBonus
	}
	if article.Title != "" && article.Title != "Untitled" && len(article.Title) > 10 {
		score += w.TitleQuality
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return &score
}
