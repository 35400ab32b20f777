package extract

import (
	"strings"
	"unicode/utf8"
)

// MaxAnswerLen bounds extracted answers so consensus comparison is
// stable across verbose rationales.
const MaxAnswerLen = 100

// answerMarkers are checked in order; longer markers come first so
// "Final Answer:" is not shadowed by "Answer:". Matching is
// case-insensitive and the last occurrence in the rationale wins.
var answerMarkers = []string{
	"final answer:",
	"the answer is",
	"answer is",
	"answer:",
	"conclusion:",
}

// connectiveTails cut an extracted answer at trailing connective
// clauses ("... Therefore the claim holds").
var connectiveTails = []string{"Therefore", "Thus", "Hence"}

// connectivePrefixes are stripped from the front of sentences used as
// fallback answers.
var connectivePrefixes = []string{"So ", "Thus ", "Therefore ", "Hence "}

// normalizePrefixes are removed before consensus comparison.
var normalizePrefixes = []string{"the answer is", "answer:", "therefore", "thus", "so"}

// Answer extracts a short terminal answer from a free-text rationale.
// It prefers explicit answer markers and falls back to the last
// non-empty sentence. Used only for consensus voting, never as the
// final answer.
func Answer(rationale string) string {
	text := StripMarkdown(rationale)

	if after, ok := AfterMarker(text); ok {
		return truncate(after, MaxAnswerLen)
	}

	if last := LastSentence(text); last != "" {
		return truncate(last, MaxAnswerLen)
	}

	return truncate(strings.TrimSpace(text), MaxAnswerLen)
}

// AfterMarker returns the text following the last explicit answer
// marker, cut to the first sentence with connective tails removed.
func AfterMarker(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, marker := range answerMarkers {
		idx := strings.LastIndex(lower, marker)
		if idx < 0 {
			continue
		}
		answer := text[idx+len(marker):]
		return cutAnswer(answer), true
	}
	return "", false
}

// cutAnswer trims a raw post-marker fragment down to one clean clause.
func cutAnswer(answer string) string {
	answer = strings.TrimSpace(answer)

	// First line only
	if i := strings.IndexByte(answer, '\n'); i >= 0 {
		answer = answer[:i]
	}

	for _, tail := range connectiveTails {
		if i := strings.Index(answer, tail); i >= 0 {
			answer = answer[:i]
		}
	}

	answer = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(answer), ":"))

	// First sentence if several
	if i := strings.Index(answer, ". "); i >= 0 {
		answer = answer[:i+1]
	}

	return strings.TrimSpace(answer)
}

// LastSentence returns the last non-empty sentence of the text with
// leading connective words stripped.
func LastSentence(text string) string {
	sentences := strings.Split(text, ".")
	for i := len(sentences) - 1; i >= 0; i-- {
		s := strings.TrimSpace(sentences[i])
		if s == "" {
			continue
		}
		for _, prefix := range connectivePrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				break
			}
		}
		return s
	}
	return ""
}

// Normalize prepares an extracted answer for consensus comparison:
// common prefixes removed, lowercased, whitespace collapsed, truncated.
func Normalize(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	for _, prefix := range normalizePrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s[len(prefix):]), ":"))
		}
	}
	s = strings.TrimRight(s, `.?!,;:"' `)
	s = truncate(s, MaxAnswerLen)
	return strings.Join(strings.Fields(s), " ")
}

// StripMarkdown removes bold/italic markers that LLMs sprinkle over
// answer lines.
func StripMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	return strings.TrimSpace(text)
}

// FeverLabel maps free text onto one of the three verification labels.
// The second return is false when no label is recognizable.
func FeverLabel(text string) (string, bool) {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "NOT ENOUGH"):
		return "NOT ENOUGH INFO", true
	case strings.Contains(upper, "REFUTE"):
		return "REFUTES", true
	case strings.Contains(upper, "SUPPORT"):
		return "SUPPORTS", true
	}
	return "", false
}

func truncate(s string, n int) string {
	return strings.TrimSpace(Clip(s, n))
}

// Clip cuts s to at most n bytes without splitting a multibyte rune:
// the cut backs up to the nearest rune boundary.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
