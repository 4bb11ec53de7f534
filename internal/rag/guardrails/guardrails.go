package guardrails

import (
	"regexp"
	"strings"

	"deskrag/internal/rag/prompt"
)

var citationRe = regexp.MustCompile(`\[DOC=.*?\|PAGE=\d+\|CHUNK=\d+\]`)

// ShouldAbstainFromRetrieval decides before generation: with nothing
// retrieved, or when even the best hit scores under the floor, asking the
// model would only invite guessing.
func ShouldAbstainFromRetrieval(hitCount int, bestScore, minScore float64) bool {
	return hitCount == 0 || bestScore < minScore
}

// ValidateOrAbstain enforces the citation contract on a generated answer.
// Returns (abstained, final). An empty answer, the exact abstain sentence,
// or an answer with no valid citation tag all become abstentions.
func ValidateOrAbstain(answer string) (bool, string) {
	ans := strings.TrimSpace(answer)
	if ans == "" {
		return true, prompt.AbstainText
	}
	if ans == prompt.AbstainText {
		return true, ans
	}
	if !citationRe.MatchString(ans) {
		return true, prompt.AbstainText
	}
	return false, ans
}
