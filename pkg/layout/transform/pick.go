package transform

import (
	"slices"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
)

// Pick reorders the bins of a layout into the given explicit order. Listing
// a subset of the current bins drops the unlisted ones, which is equivalent
// to a filter; rows referencing a dropped bin's sequences disappear from the
// projected views without diagnostics.
//
// Returns a VALIDATION error if an identifier does not name a current bin or
// appears twice. Applying Pick with the inverse permutation restores the
// original bin_index assignment.
func Pick(l *layout.Layout, order ...string) (*layout.Layout, error) {
	if len(order) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "pick requires at least one bin id")
	}

	rank := make(map[string]int, len(order))
	for i, bin := range order {
		if !l.HasBin(bin) {
			return nil, errors.New(errors.ErrCodeValidation, "pick references unknown bin %q", bin)
		}
		if _, dup := rank[bin]; dup {
			return nil, errors.New(errors.ErrCodeValidation, "pick lists bin %q twice", bin)
		}
		rank[bin] = i
	}

	rows := make([]layout.Seq, 0, len(l.SeqRows()))
	for _, s := range l.SeqRows() {
		if _, keep := rank[s.BinID]; keep {
			rows = append(rows, s)
		}
	}
	slices.SortStableFunc(rows, func(a, b layout.Seq) int { return rank[a.BinID] - rank[b.BinID] })

	return l.Derive(l.Registry(), rows, l.Options())
}
