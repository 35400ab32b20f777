package knowledge

import "github.com/pzaytsev/knowchain/internal/model"

// domainPriority orders sources by knowledge domain.
var domainPriority = map[model.Domain][]string{
	model.DomainFactual: {SourceWikidata, SourceWikipedia, SourceWebSearch},
	model.DomainMedical: {SourceWikipedia, SourceWikidata, SourceWebSearch},
	model.DomainPhysics: {SourceWikipedia, SourceWikidata, SourceWebSearch},
	model.DomainBiology: {SourceWikipedia, SourceWikidata, SourceWebSearch},
}

// queryTypePriority orders sources by query style. Query type takes
// precedence over domain when both apply.
var queryTypePriority = map[model.QueryType][]string{
	model.QueryTypeSPARQL:  {SourceWikidata},
	model.QueryTypeMedical: {SourceWikipedia},
	model.QueryTypeNatural: {SourceWikipedia, SourceWebSearch},
}

// RankSources merges the query-type priority list, then the domain
// priority list, then any remaining available sources, de-duplicated
// and filtered to sources actually present. Pure function of its
// inputs: identical arguments always yield the same ordering.
func RankSources(domain model.Domain, queryType model.QueryType, available []string) []string {
	present := make(map[string]bool, len(available))
	for _, name := range available {
		present[name] = true
	}

	var ranked []string
	seen := make(map[string]bool)

	appendPresent := func(names []string) {
		for _, name := range names {
			if present[name] && !seen[name] {
				seen[name] = true
				ranked = append(ranked, name)
			}
		}
	}

	appendPresent(queryTypePriority[queryType])
	appendPresent(domainPriority[domain])
	appendPresent(available)

	return ranked
}
