package matching

import (
	"fmt"
	"slices"
	"sort"
)

// Rank orders candidates by score descending and keeps at most topN.
// Ties keep their input order.
func Rank(candidates []Candidate, topN int) (Result, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidRequest, topN)
	}

	ranked := slices.Clone(candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	if ranked == nil {
		ranked = Result{}
	}
	return ranked, nil
}
