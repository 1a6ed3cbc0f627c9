// Package paramname derives the HTTP header that carries a request parameter.
package paramname

import (
	"strings"
	"unicode"
)

// ToHeader converts a parameter name into its header form: words are split on
// case transitions and on '_', '-', '.' and spaces, lowercased, joined with
// '-' and prefixed with "x-". A run of capitals is one word, so "sessionID"
// becomes "x-session-id" and "HTTPToken" becomes "x-http-token".
func ToHeader(param string) string {
	words := split(param)
	if len(words) == 0 {
		return ""
	}
	return "x-" + strings.Join(words, "-")
}

func split(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// aB -> a|B ; ABc -> A|Bc ; 1B -> 1|B
			if !unicode.IsUpper(prev) || nextLower {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
