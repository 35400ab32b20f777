package model

import "strings"

// ClaimMarker is the literal prefix that tags a question as a
// fact-verification claim rather than an open QA question.
const ClaimMarker = "Claim:"

// IsClaim reports whether the question is a verification claim.
// Claim-style questions always traverse the full retrieval pipeline and
// are answered with a three-way label instead of free text.
func IsClaim(question string) bool {
	return strings.Contains(question, ClaimMarker)
}

// Domain is a topical category steering which knowledge source and
// query style is used for retrieval.
type Domain string

const (
	DomainFactual Domain = "factual"
	DomainMedical Domain = "medical"
	DomainPhysics Domain = "physics"
	DomainBiology Domain = "biology"
)

// AllDomains lists the closed set of recognized domains.
func AllDomains() []Domain {
	return []Domain{DomainFactual, DomainMedical, DomainPhysics, DomainBiology}
}

// QueryType classifies how a generated query should be executed.
type QueryType string

const (
	QueryTypeSPARQL  QueryType = "sparql"           // Structured Wikidata query
	QueryTypeMedical QueryType = "medical"          // Extracted medical terms
	QueryTypeNatural QueryType = "natural_language" // Free-text search query
)

// Query is a retrieval query generated from a single rationale for a
// single domain.
type Query struct {
	Text string    `json:"text"`
	Type QueryType `json:"type"`
}

// Rationale is one LLM-generated chain-of-thought trace for a question.
type Rationale struct {
	Index       int     `json:"index"`       // Generation index (1-based)
	Temperature float64 `json:"temperature"` // Sampling temperature used
	Text        string  `json:"text"`
}

// VerificationLabels are the only admissible final answers for
// claim-style questions.
var VerificationLabels = []string{"SUPPORTS", "REFUTES", "NOT ENOUGH INFO"}
