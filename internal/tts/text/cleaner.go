package text

import (
	"regexp"
	"strings"
)

const (
	referenceRegexPattern = `\[\d+(?:[,\-–]\s*\d+)*\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	spaceRunRegexPattern  = `[ \t\f\v\p{Zs}]+`
	blankLineRegexPattern = `\n{3,}`
)

// Cleaner tidies extracted page text before it is sent for synthesis:
// reference markers are removed, line endings and blank runs are normalised
// and zero-width characters are dropped. Chinese punctuation and digits are
// left alone; the service reads them itself.
type Cleaner struct {
	referencePattern *regexp.Regexp
	spaceRunPattern  *regexp.Regexp
	blankLinePattern *regexp.Regexp
	invisible        *strings.Replacer
}

// NewCleaner compiles the patterns once.
func NewCleaner() *Cleaner {
	return &Cleaner{
		referencePattern: regexp.MustCompile(referenceRegexPattern),
		spaceRunPattern:  regexp.MustCompile(spaceRunRegexPattern),
		blankLinePattern: regexp.MustCompile(blankLineRegexPattern),
		invisible: strings.NewReplacer(
			"\u200b", "",
			"\u200c", "",
			"\u200d", "",
			"\ufeff", "",
			"\u00ad", "",
		),
	}
}

// Clean returns the tidied text.
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return text
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = c.invisible.Replace(text)
	text = c.referencePattern.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(c.spaceRunPattern.ReplaceAllString(line, " "))
	}

	text = c.blankLinePattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(text)
}
