// Package tuner implements the auto-tuner: it mines recent query history
// for a collection and recommends the alpha and top_k values that have
// historically produced the best answer quality, each picked independently.
package tuner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/knoguchi/rag/internal/store"
)

// MinQueriesForTuning is the minimum number of qualifying historical rows
// required before the tuner will produce a recommendation.
const MinQueriesForTuning = 10

// MinSamplesPerBucket is the minimum number of rows a bucket must have
// before it is eligible to be recommended.
const MinSamplesPerBucket = 3

// HistoryLimit bounds how many recent rows are mined per collection.
const HistoryLimit = 500

// Recommendation is the tuner's suggested retrieval configuration. Alpha
// and TopK are found independently of each other: a collection can have
// enough history to recommend an alpha but not a top_k, or vice versa.
type Recommendation struct {
	Alpha            float64
	AlphaFound       bool
	AlphaQuality     float64
	AlphaSampleCount int

	TopK            int
	TopKFound       bool
	TopKQuality     float64
	TopKSampleCount int
}

// Tuner recommends retrieval parameters from historical query quality.
type Tuner struct {
	logs store.QueryLogRepository
}

// New creates a Tuner.
func New(logs store.QueryLogRepository) *Tuner {
	return &Tuner{logs: logs}
}

type bucketStats struct {
	sumQuality float64
	count      int
	firstSeen  int
}

// Recommend mines up to HistoryLimit recent rows for collection and
// independently picks the best-performing alpha bucket and top_k bucket:
// each dimension is maximized on its own, so the winning alpha and winning
// top_k need not come from the same historical rows. ok is false if there
// is not enough history to recommend either dimension.
func (t *Tuner) Recommend(ctx context.Context, collection string) (Recommendation, bool, error) {
	rows, err := t.logs.ListForTuning(ctx, collection, HistoryLimit)
	if err != nil {
		return Recommendation{}, false, fmt.Errorf("loading tuning history: %w", err)
	}

	if len(rows) < MinQueriesForTuning {
		return Recommendation{}, false, nil
	}

	alphaBuckets := make(map[float64]*bucketStats)
	alphaOrder := make([]float64, 0)
	topKBuckets := make(map[int]*bucketStats)
	topKOrder := make([]int, 0)

	for i, row := range rows {
		quality := (row.Faithfulness + row.Relevance) / 2

		alphaKey := snapAlpha(row.Alpha)
		ab, ok := alphaBuckets[alphaKey]
		if !ok {
			ab = &bucketStats{firstSeen: i}
			alphaBuckets[alphaKey] = ab
			alphaOrder = append(alphaOrder, alphaKey)
		}
		ab.sumQuality += quality
		ab.count++

		topKKey := row.TopK
		tb, ok := topKBuckets[topKKey]
		if !ok {
			tb = &bucketStats{firstSeen: i}
			topKBuckets[topKKey] = tb
			topKOrder = append(topKOrder, topKKey)
		}
		tb.sumQuality += quality
		tb.count++
	}

	var rec Recommendation

	if bestAlpha, bestStats, found := bestBucket(alphaOrder, alphaBuckets); found {
		rec.Alpha = bestAlpha
		rec.AlphaFound = true
		rec.AlphaQuality = bestStats.sumQuality / float64(bestStats.count)
		rec.AlphaSampleCount = bestStats.count
	}

	if bestTopK, bestStats, found := bestBucket(topKOrder, topKBuckets); found {
		rec.TopK = bestTopK
		rec.TopKFound = true
		rec.TopKQuality = bestStats.sumQuality / float64(bestStats.count)
		rec.TopKSampleCount = bestStats.count
	}

	return rec, rec.AlphaFound || rec.TopKFound, nil
}

// bestBucket picks the bucket with the highest mean quality among those
// meeting MinSamplesPerBucket, iterating in first-seen order so ties
// resolve to the bucket that appeared first in the (most-recent-first)
// history.
func bestBucket[K comparable](order []K, buckets map[K]*bucketStats) (K, *bucketStats, bool) {
	var (
		best    K
		bestB   *bucketStats
		bestAvg float64
		found   bool
	)

	sorted := make([]K, len(order))
	copy(sorted, order)
	sort.Slice(sorted, func(i, j int) bool {
		return buckets[sorted[i]].firstSeen < buckets[sorted[j]].firstSeen
	})

	for _, key := range sorted {
		b := buckets[key]
		if b.count < MinSamplesPerBucket {
			continue
		}
		avg := b.sumQuality / float64(b.count)
		if !found || avg > bestAvg {
			found = true
			best = key
			bestB = b
			bestAvg = avg
		}
	}
	return best, bestB, found
}

// snapAlpha rounds alpha to the nearest 0.1 so that nearby configurations
// (e.g. 0.52 vs 0.55) are pooled into the same bucket.
func snapAlpha(alpha float64) float64 {
	return math.Round(alpha*10) / 10
}
