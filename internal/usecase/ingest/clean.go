package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean applies conservative text normalization: unicode NFKC, horizontal
// whitespace runs collapsed to one space, 3+ newlines collapsed to two.
// Punctuation is left alone; aggressive cleanup hurts embeddings.
func Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	t := norm.NFKC.String(text)
	t = spaceRuns.ReplaceAllString(t, " ")
	t = newlineRuns.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}
