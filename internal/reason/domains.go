package reason

import (
	"strings"

	"github.com/pzaytsev/knowchain/internal/model"
)

// Keyword families that map a free-form classification response onto
// the supported domains. Matching is substring-based over the lowered
// response so the classifier does not have to emit an exact label.
var domainKeywords = map[model.Domain][]string{
	model.DomainFactual: {
		"factual", "wikipedia", "historical", "geographic",
		"political", "general knowledge",
	},
	model.DomainMedical: {
		"medical", "health", "disease", "treatment",
		"medicine", "patient", "clinical", "diagnosis",
	},
	model.DomainPhysics: {
		"physics", "force", "energy", "motion",
		"quantum", "relativity", "mechanics", "electromagnetic",
	},
	model.DomainBiology: {
		"biology", "organism", "cell", "genetics",
		"evolution", "species", "molecular", "biochemical",
	},
}

// ParseDomains extracts the set of domains mentioned in a
// classification response, in the fixed model.AllDomains order for
// determinism. An empty match falls back to the factual domain.
func ParseDomains(response string) []model.Domain {
	lowered := strings.ToLower(response)

	var domains []model.Domain
	for _, d := range model.AllDomains() {
		for _, kw := range domainKeywords[d] {
			if strings.Contains(lowered, kw) {
				domains = append(domains, d)
				break
			}
		}
	}

	if len(domains) == 0 {
		domains = []model.Domain{model.DomainFactual}
	}
	return domains
}
