package stringutils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	urlPattern        = regexp.MustCompile(`(?i)(https?://|www\.)[^\s]+`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// TruncateRunes cuts s to at most max runes. max <= 0 returns s unchanged.
func TruncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// CollapseSpaces trims s and replaces whitespace runs with a single space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}

// SanitizeTitle cleans a model suggested title: drops URLs, quotes, labels
// like "Título:" and any character that is not a letter, digit, space or basic punctuation.
func SanitizeTitle(content string) string {
	content = strings.TrimSpace(content)
	if line, _, found := strings.Cut(content, "\n"); found {
		content = line
	}
	content = urlPattern.ReplaceAllString(content, "")
	for _, label := range []string{"título:", "titulo:", "title:"} {
		if strings.HasPrefix(strings.ToLower(content), label) {
			content = content[len(label):]
			break
		}
	}

	var result strings.Builder
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) ||
			r == '.' || r == ',' || r == '!' || r == '?' || r == '¡' || r == '¿' || r == '-' || r == '\'' {
			result.WriteRune(r)
		}
	}
	content = CollapseSpaces(result.String())
	return strings.TrimRight(content, " .,-'")
}

// TruncateTitle cuts title to at most maxLen runes, preferring a word boundary.
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if maxLen <= 0 || len(runes) <= maxLen {
		return title
	}
	truncated := string(runes[:maxLen])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimRight(truncated, " .,-")
}
