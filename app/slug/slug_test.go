package slug

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ep 1: Hello!", "ep-1-hello"},
		{"  Padded Title  ", "padded-title"},
		{"snake_case_title", "snake-case-title"},
		{"Multiple   ---   separators", "multiple-separators"},
		{"Café Crème", "café-crème"},
		{"Café", "café"},
		{"!!!", ""},
		{"", ""},
		{"#42 — The Answer?", "42-the-answer"},
		{"Part ½: E=mc²", "part-½-e-mc²"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in), "input %q", c.in)
	}
}

func TestSlugifyProperties(t *testing.T) {
	titles := []string{
		"Ep 1: Hello!",
		"ÜBER   Große_Straße",
		"tabs\tand\nnewlines",
		"__leading and trailing__",
		"Ǆemal İstanbul",
		"日本語 タイトル 2024",
		"already-a-slug",
	}

	for _, title := range titles {
		s := Slugify(title)

		assert.Equal(t, s, Slugify(s), "not idempotent for %q", title)
		assert.False(t, strings.ContainsAny(s, "_ \t\n"), "separator left in %q", s)
		assert.False(t, strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-"), "dangling hyphen in %q", s)
		for _, r := range s {
			assert.False(t, unicode.IsUpper(r), "upper-case rune in %q", s)
		}
	}
}
