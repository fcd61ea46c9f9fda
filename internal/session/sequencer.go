// Package session turns a decoded stimulus table into the ordered,
// length-bounded plan a participant actually sees.
//
// Ordering is a Fisher–Yates shuffle. Without a sequencing key the shuffle
// draws from a time-seeded source and every session gets an independent
// permutation; with a key the draws come from a deterministic generator
// seeded from the key, so two participants given the same key see provably
// identical trial ordering.
package session

import (
	"math/rand"
	"time"

	"github.com/perceptlab/narration-survey/internal/stimuli"
)

// Plan produces the ordered session plan: a shuffled copy of records,
// truncated to limit. A limit <= 0 means unbounded (the full table). An
// empty input yields an empty plan; Plan never fails.
//
// The input slice is not mutated.
func Plan(records []stimuli.Record, limit int, key string) []stimuli.Record {
	plan := make([]stimuli.Record, len(records))
	copy(plan, records)

	shuffle(plan, draws(key))

	if limit > 0 && limit < len(plan) {
		plan = plan[:limit]
	}
	return plan
}

// draws selects the random stream: deterministic when a key is supplied,
// time-seeded otherwise.
func draws(key string) func() float64 {
	if key != "" {
		return newMulberry32(SeedFromKey(key)).Float64
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return rng.Float64
}

// shuffle is the Fisher–Yates variant both paths share: walk i from the
// end down to 1, draw j in [0, i] via floor(next() * (i+1)), swap. The
// seeded path depends on this exact index procedure; do not substitute
// rand.Shuffle or change the iteration order.
func shuffle(plan []stimuli.Record, next func() float64) {
	for i := len(plan) - 1; i >= 1; i-- {
		j := int(next() * float64(i+1))
		plan[i], plan[j] = plan[j], plan[i]
	}
}
