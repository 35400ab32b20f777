package knowledge

import (
	"regexp"
	"strings"
)

// minSPARQLLen rejects fragments too short to be a runnable query.
const minSPARQLLen = 20

// malformedPatterns are entity references followed by a bare capitalized
// word, a frequent LLM output shape ("wd:Q664 New Zealand") that the
// endpoint rejects with a 400.
var malformedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`wd:\w+\s+[A-Z]`),
	regexp.MustCompile(`wdt:\w+\s+[A-Z]`),
}

// CleanSPARQL strips markdown fences, language markers, and comments
// from an LLM-generated SPARQL query and truncates anything past the
// final closing brace.
func CleanSPARQL(query string) string {
	// Pull the query out of a markdown code block if present
	if strings.Contains(query, "```") {
		for _, part := range strings.Split(query, "```") {
			upper := strings.ToUpper(part)
			if strings.Contains(upper, "SELECT") || strings.Contains(upper, "ASK") {
				query = part
				break
			}
		}
	}

	query = strings.TrimSpace(query)
	for _, marker := range []string{"sparql", "SPARQL"} {
		query = strings.TrimSpace(strings.TrimPrefix(query, marker))
	}

	var lines []string
	for _, line := range strings.Split(query, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	query = strings.Join(lines, "\n")

	// Drop trailing prose after the last closing brace
	if !strings.HasSuffix(query, "}") {
		if idx := strings.LastIndex(query, "}"); idx >= 0 {
			query = query[:idx+1]
		}
	}

	return strings.TrimSpace(query)
}

// ValidSPARQL reports whether the query is syntactically plausible:
// a SELECT or ASK with a WHERE clause, balanced braces, a minimum
// length, and none of the known malformed entity patterns. Invalid
// queries are skipped without a network call.
func ValidSPARQL(query string) bool {
	if len(strings.TrimSpace(query)) < minSPARQLLen {
		return false
	}

	upper := strings.ToUpper(query)
	if !strings.Contains(upper, "SELECT") && !strings.Contains(upper, "ASK") {
		return false
	}
	if !strings.Contains(upper, "WHERE") {
		return false
	}
	if strings.Count(query, "{") != strings.Count(query, "}") {
		return false
	}

	for _, pattern := range malformedPatterns {
		if pattern.MatchString(query) {
			return false
		}
	}

	return true
}
