package merge

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// fallbackMerge is the no-timestamps linear pass: each subsequent text is
// stitched to the accumulated tail by finding the longest matching token
// run between the tail's last 30% and the new text's head's first 30%.
func fallbackMerge(texts []string) string {
	if len(texts) == 0 {
		return ""
	}

	merged := strings.TrimSpace(texts[0])
	for _, next := range texts[1:] {
		merged = stitch(merged, next)
	}
	return merged
}

func stitch(merged, next string) string {
	mergedTokens := strings.Fields(merged)
	nextTokens := strings.Fields(next)
	if len(mergedTokens) == 0 {
		return strings.TrimSpace(next)
	}
	if len(nextTokens) == 0 {
		return merged
	}

	tailCount := tokenFraction(len(mergedTokens))
	headCount := tokenFraction(len(nextTokens))
	tailStart := len(mergedTokens) - tailCount

	bestRun := 0
	for pos := tailStart; pos < len(mergedTokens); pos++ {
		run := 0
		for run < headCount && pos+run < len(mergedTokens) && normalizeToken(mergedTokens[pos+run]) == normalizeToken(nextTokens[run]) {
			run++
		}
		if run > bestRun {
			bestRun = run
		}
	}

	if bestRun >= 2 {
		return merged + " " + strings.Join(nextTokens[bestRun:], " ")
	}
	return merged + " " + next
}

// tokenFraction returns the 30% window size used for tail/head matching,
// at least one token.
func tokenFraction(n int) int {
	count := int(math.Ceil(float64(n) * 0.3))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

var foldCaser = cases.Fold()

// normalizeToken case-folds and strips leading/trailing punctuation so
// "Hello," and "hello" compare equal.
func normalizeToken(token string) string {
	stripped := strings.TrimFunc(token, func(r rune) bool { return unicode.IsPunct(r) })
	return foldCaser.String(stripped)
}
