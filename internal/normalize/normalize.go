// Package normalize cleans raw scraped markup into plain text for scoring,
// storage and AI analysis.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Character ceilings enforced by callers before handing normalized text to
// the AI collaborator. These are cost guards, not normalizer behavior: the
// normalizer's output length is what gets measured against them.
const (
	MaxAnalysisChars = 50000
	MaxSummaryChars  = 100000
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	whitespace  = regexp.MustCompile(`[\s\p{Zs}]+`)
	mdHeading   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	htmlH1      = regexp.MustCompile(`(?is)<h1[^>]*>(.+?)</h1>`)
	htmlTitle   = regexp.MustCompile(`(?is)<title[^>]*>(.+?)</title>`)
)

// Clean strips markup, decodes HTML entities and collapses whitespace.
// It is idempotent and never fails: malformed input yields best-effort
// plain text, empty input yields an empty string.
func Clean(raw string) string {
	out := raw
	// Iterate to a fixpoint so nested or double-escaped markup cannot
	// survive a single pass and break idempotence.
	for i := 0; i < 4; i++ {
		next := cleanOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func cleanOnce(s string) string {
	s = stripPolicy.Sanitize(s)
	// bluemonday entity-escapes its output; undo that and any entities
	// present in the source.
	s = html.UnescapeString(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractTitle pulls a human title out of markdown or HTML content.
// Falls back to the first short line, then "Untitled".
func ExtractTitle(content string) string {
	if content == "" {
		return "Untitled"
	}

	if m := mdHeading.FindStringSubmatch(content); m != nil {
		if t := Clean(m[1]); t != "" {
			return t
		}
	}
	if m := htmlH1.FindStringSubmatch(content); m != nil {
		if t := Clean(m[1]); t != "" {
			return t
		}
	}
	if m := htmlTitle.FindStringSubmatch(content); m != nil {
		if t := Clean(m[1]); t != "" {
			return t
		}
	}

	firstLine := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if firstLine != "" && len(firstLine) < 200 {
		if t := Clean(firstLine); t != "" {
			return t
		}
	}

	return "Untitled"
}

// Excerpt returns a short summary of already-clean text, cut at a sentence
// boundary near maxLen when possible.
func Excerpt(clean string, maxLen int) string {
	if maxLen <= 0 || len(clean) <= maxLen {
		return clean
	}

	var b strings.Builder
	for _, sentence := range strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if b.Len()+len(sentence)+1 > maxLen {
			break
		}
		b.WriteString(sentence)
		b.WriteString(".")
	}

	if b.Len() > 0 {
		return strings.TrimSpace(b.String())
	}

	// No usable sentence boundary. Cut at a rune boundary so multibyte
	// text cannot end mid-character.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut] + "..."
}

// WordCount counts whitespace-separated words in clean text.
func WordCount(clean string) int {
	return len(strings.Fields(clean))
}
