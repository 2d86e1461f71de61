package pipeline

import (
	"strings"

	"github.com/knoguchi/rag/internal/ranker"
)

// nearDuplicateThreshold is the Jaccard word-overlap above which two
// chunks are considered near-duplicates.
const nearDuplicateThreshold = 0.7

// deduplicateResults drops near-duplicate chunks from an already
// rank-sorted list, keeping the earlier (higher-ranked) occurrence of any
// pair whose word-level Jaccard similarity meets the threshold. This runs
// after RRF fusion's exact-prefix dedup, to catch near-identical chunks
// (e.g. overlapping splits of the same passage) that fusion's canonical
// key does not merge because their first 200 characters differ.
func deduplicateResults(results []ranker.RankedResult, threshold float64) []ranker.RankedResult {
	kept := make([]ranker.RankedResult, 0, len(results))
	keptSets := make([]map[string]struct{}, 0, len(results))

	for _, r := range results {
		words := tokenize(r.Content)
		isDuplicate := false
		for _, seen := range keptSets {
			if jaccardSimilarity(words, seen) >= threshold {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			kept = append(kept, r)
			keptSets = append(keptSets, words)
		}
	}

	return kept
}

func tokenize(content string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(content))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()[]{}=<>")
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccardSimilarity(set1, set2 map[string]struct{}) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range set1 {
		if _, ok := set2[w]; ok {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}
