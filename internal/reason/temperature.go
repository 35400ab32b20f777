package reason

import (
	"strings"

	"github.com/pzaytsev/knowchain/internal/model"
)

// Sampling temperatures per question complexity class. Simple lookups
// want near-deterministic rationales; multi-hop questions benefit from
// diverse reasoning paths before self-consistency votes.
const (
	temperatureClaim    = 0.3
	temperatureSimple   = 0.3
	temperatureModerate = 0.5
	temperatureComplex  = 0.9
	temperatureDefault  = 0.7
)

var multiHopPatterns = []string{
	"both ",
	"which of",
	"whose ",
	"that also",
	"and also",
	"the same as",
}

var explanatoryPatterns = []string{
	"why ",
	"how does",
	"how do",
	"how did",
	"explain",
	"compare",
	"difference between",
}

var simplePatterns = []string{
	"who is",
	"who was",
	"what is",
	"what was",
	"when did",
	"when was",
	"where is",
	"where was",
	"capital of",
}

// TemperatureFor picks a sampling temperature from surface features of
// the question. Pattern classes are checked most-specific first so
// "what is the difference between" reads as explanatory, not simple.
func TemperatureFor(question string) float64 {
	if model.IsClaim(question) {
		return temperatureClaim
	}

	lowered := strings.ToLower(question)
	switch {
	case matchesAny(lowered, multiHopPatterns):
		return temperatureComplex
	case matchesAny(lowered, explanatoryPatterns):
		return temperatureModerate
	case matchesAny(lowered, simplePatterns):
		return temperatureSimple
	default:
		return temperatureDefault
	}
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
