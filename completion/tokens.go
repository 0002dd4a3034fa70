package completion

import "strings"

// EstimateTokens approximates the token count of a text without a real
// tokenizer: the larger of words*4/3 and characters/4. Intended only for
// pre-flight request sizing, never for billing-accurate accounting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	byWords := len(strings.Fields(text)) * 4 / 3
	byChars := len(text) / 4
	if byChars > byWords {
		return byChars
	}
	if byWords == 0 {
		return 1
	}
	return byWords
}

// EstimateRequestTokens sums the estimated tokens of every message in the request.
func EstimateRequestTokens(req Request) int {
	total := 0
	for _, m := range req.Messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
