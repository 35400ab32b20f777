package model

// KnowledgeItem is a single retrieved evidence snippet with its
// relevance score. Scores are always clamped to [0,1].
type KnowledgeItem struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"` // Name of the source that produced it
}

// NoResultsSentinel is returned by retrieval when nothing survives
// relevance filtering. The corrector treats it as "no evidence" and
// passes the rationale through unchanged.
const NoResultsSentinel = "No results found"
