package score

import (
	"sort"
	"strings"

	"github.com/pzaytsev/knowchain/internal/model"
)

// Weighting of the three relevance components.
const (
	overlapWeight    = 0.4  // Jaccard-style word overlap
	exactBonus       = 0.3  // query appears verbatim in the snippet
	partialBonus     = 0.15 // some query word (>3 chars) appears
	similarityWeight = 0.3  // character-level sequence similarity
)

// similarityWindow caps how much of a snippet is compared
// character-by-character against the query.
const similarityWindow = 500

// Scorer scores free-text knowledge snippets against a query.
// Deterministic and side-effect-free.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score scores each item against the query and returns them sorted by
// score, highest first. Scores are clamped to [0,1].
func (s *Scorer) Score(query string, items []model.KnowledgeItem) []model.KnowledgeItem {
	queryLower := strings.ToLower(query)
	queryWords := wordSet(queryLower)

	scored := make([]model.KnowledgeItem, len(items))
	for i, item := range items {
		scored[i] = item
		scored[i].Score = s.calculate(queryLower, queryWords, item.Content)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// calculate computes the weighted relevance score for one snippet.
func (s *Scorer) calculate(queryLower string, queryWords map[string]struct{}, knowledge string) float64 {
	if strings.TrimSpace(knowledge) == "" {
		return 0.0
	}

	knowledgeLower := strings.ToLower(knowledge)
	knowledgeWords := wordSet(knowledgeLower)

	total := 0.0

	// 1. Word overlap relative to the query vocabulary
	if len(queryWords) > 0 {
		common := 0
		for w := range queryWords {
			if _, ok := knowledgeWords[w]; ok {
				common++
			}
		}
		total += float64(common) / float64(len(queryWords)) * overlapWeight
	}

	// 2. Substring match bonus
	if strings.Contains(knowledgeLower, queryLower) {
		total += exactBonus
	} else if anyWordIn(queryWords, knowledgeLower) {
		total += partialBonus
	}

	// 3. Character-level sequence similarity over a bounded window
	window := knowledgeLower
	if len(window) > similarityWindow {
		window = window[:similarityWindow]
	}
	total += similarityRatio(queryLower, window) * similarityWeight

	return clamp01(total)
}

// FilterByThreshold keeps only items at or above the threshold.
func (s *Scorer) FilterByThreshold(items []model.KnowledgeItem, threshold float64) []model.KnowledgeItem {
	var kept []model.KnowledgeItem
	for _, item := range items {
		if item.Score >= threshold {
			kept = append(kept, item)
		}
	}
	return kept
}

// TopK returns the k highest-scored items. Items must already be
// sorted, as returned by Score.
func (s *Scorer) TopK(items []model.KnowledgeItem, k int) []model.KnowledgeItem {
	if k >= len(items) {
		return items
	}
	return items[:k]
}

// anyWordIn reports whether any query word longer than 3 characters
// occurs in the snippet.
func anyWordIn(queryWords map[string]struct{}, knowledgeLower string) bool {
	for w := range queryWords {
		if len(w) > 3 && strings.Contains(knowledgeLower, w) {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// similarityRatio computes a sequence similarity in [0,1]: twice the
// number of matching characters over the combined length, where matches
// are found by recursively locating the longest common substring.
func similarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matched := matchingChars(a, b)
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

// matchingChars counts characters covered by the longest common
// substring plus, recursively, the best matches to its left and right.
func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the
// longest substring common to a and b.
func longestCommonSubstring(a, b string) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	bestA, bestB, bestLen := 0, 0, 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}

	return bestA, bestB, bestLen
}
