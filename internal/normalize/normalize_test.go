package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"strips tags", "<p>hello <b>world</b></p>", "hello world"},
		{"collapses whitespace", "hello   \n\t world", "hello world"},
		{"decodes entities", "fish &amp; chips &hellip;", "fish & chips …"},
		{"nbsp becomes space", "a&nbsp;b", "a b"},
		{"script content dropped", "<script>alert(1)</script>done", "done"},
		{"empty input", "", ""},
		{"only markup", "<div><br/></div>", ""},
		{"malformed markup best effort", "<p>unclosed <b>bold", "unclosed bold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"<h1>Breaking</h1><p>Chip exports &amp; tariffs</p>",
		"plain already",
		"&lt;b&gt;escaped markup&lt;/b&gt;",
		"&amp;lt;b&amp;gt;double escaped&amp;lt;/b&amp;gt;",
		"5 &lt; 6 and 7 &gt; 2",
		"",
	}

	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Errorf("Clean not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown h1", "# Chip Wars Continue\n\nBody text.", "Chip Wars Continue"},
		{"html h1", "<html><h1 class=\"big\">Markets Rally</h1><p>text</p></html>", "Markets Rally"},
		{"title tag", "<html><title>Page Title</title><p>text</p></html>", "Page Title"},
		{"first line fallback", "Short headline\nrest of the text", "Short headline"},
		{"empty", "", "Untitled"},
		{"long first line ignored", strings.Repeat("x", 250), "Untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTitle(tt.in)
			if got != tt.want {
				t.Errorf("ExtractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	t.Run("short text returned whole", func(t *testing.T) {
		if got := Excerpt("tiny", 100); got != "tiny" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cuts at sentence boundary", func(t *testing.T) {
		in := "First sentence here. Second sentence follows. Third one is long."
		got := Excerpt(in, 30)
		if got != "First sentence here." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("falls back to hard cut", func(t *testing.T) {
		in := strings.Repeat("a", 100)
		got := Excerpt(in, 10)
		if got != strings.Repeat("a", 10)+"..." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("hard cut keeps multibyte runes whole", func(t *testing.T) {
		in := strings.Repeat("한", 40)
		got := Excerpt(in, 10)
		if !utf8.ValidString(got) {
			t.Errorf("excerpt is not valid UTF-8: %q", got)
		}
		if got != strings.Repeat("한", 3)+"..." {
			t.Errorf("got %q", got)
		}
	})
}

func TestWordCount(t *testing.T) {
	if got := WordCount("one two  three"); got != 3 {
		t.Errorf("WordCount = %d, want 3", got)
	}
	if got := WordCount(""); got != 0 {
		t.Errorf("WordCount empty = %d, want 0", got)
	}
}
