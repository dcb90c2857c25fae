package transform

import (
	"fmt"
	"slices"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/track"
)

// FocusOptions configure the sub-region extraction transform.
type FocusOptions struct {
	// Track names the feature or link track the predicate runs against.
	Track string
	// Match selects target features when Track is a feature track.
	Match func(track.Feature) bool
	// MatchLink selects target links when Track is a link track. Both side
	// intervals of a matched link become targets.
	MatchLink func(track.Link) bool

	// MarginUp and MarginDown expand each target interval upstream and
	// downstream (along the forward axis) independently.
	MarginUp   int
	MarginDown int

	// Marginal overrides the layout's policy for rows spanning outside the
	// new windows. Empty keeps the current policy.
	Marginal layout.MarginalPolicy

	// Subseqs supplies explicit windows instead of a predicate. When set,
	// Track and the predicates are ignored and an empty predicate match is
	// not an error.
	Subseqs []Subseq
}

// Subseq is an explicit focus window in sequence-local 1-based inclusive
// coordinates.
type Subseq struct {
	SeqID string
	Start int
	End   int
}

// span is a 1-based inclusive target interval on one layout row's parent.
type span struct{ lo, hi int }

// Focus narrows the layout to the regions matched by the predicate (or the
// explicit Subseqs), expanded by the margins. A sequence with multiple
// disjoint targets is split into one row per merged target window, each with
// a fresh synthetic id; sequences without any target are dropped. All
// feature and link rows are re-projected against the new windows under the
// marginal policy.
//
// Returns a VALIDATION error when the predicate matches nothing and no
// Subseqs override is given, or when a Subseq references an unknown
// sequence.
func Focus(l *layout.Layout, opts FocusOptions) (*layout.Layout, error) {
	targets, err := focusTargets(l, opts)
	if err != nil {
		return nil, err
	}

	rows := splitRows(l.SeqRows(), targets)
	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "focus windows overlap no laid-out sequence")
	}

	lopts := l.Options()
	if opts.Marginal != "" {
		policy, err := layout.ParseMarginalPolicy(string(opts.Marginal))
		if err != nil {
			return nil, err
		}
		lopts.Marginal = policy
	}

	return l.Derive(l.Registry(), rows, lopts)
}

// focusTargets evaluates the predicate (or Subseqs) into margin-expanded
// target intervals, keyed by original seq_id.
func focusTargets(l *layout.Layout, opts FocusOptions) (map[string][]span, error) {
	targets := make(map[string][]span)
	add := func(seqID string, lo, hi int) {
		if lo > hi {
			lo, hi = hi, lo
		}
		targets[seqID] = append(targets[seqID], span{lo - opts.MarginUp, hi + opts.MarginDown})
	}

	if len(opts.Subseqs) > 0 {
		known := make(map[string]bool)
		for _, s := range l.SeqRows() {
			known[s.ParentID] = true
		}
		for _, sub := range opts.Subseqs {
			if !known[sub.SeqID] {
				return nil, errors.New(errors.ErrCodeValidation, "subseq references unknown sequence %q", sub.SeqID)
			}
			if sub.Start < 1 || sub.End < sub.Start {
				return nil, errors.New(errors.ErrCodeValidation,
					"subseq %q has invalid window %d..%d", sub.SeqID, sub.Start, sub.End)
			}
			add(sub.SeqID, sub.Start, sub.End)
		}
		return targets, nil
	}

	reg := l.Registry()
	if ft, err := reg.Feats(opts.Track); err == nil {
		if opts.Match == nil {
			return nil, errors.New(errors.ErrCodeValidation, "focus on track %q requires a feature predicate", opts.Track)
		}
		for _, f := range ft.Rows {
			if opts.Match(f) {
				add(f.SeqID, f.Start, f.End)
			}
		}
	} else if lt, err := reg.Links(opts.Track); err == nil {
		if opts.MatchLink == nil {
			return nil, errors.New(errors.ErrCodeValidation, "focus on track %q requires a link predicate", opts.Track)
		}
		for _, lk := range lt.Rows {
			if opts.MatchLink(lk) {
				add(lk.SeqID1, lk.Start1, lk.End1)
				add(lk.SeqID2, lk.Start2, lk.End2)
			}
		}
	} else {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown track %q", opts.Track)
	}

	if len(targets) == 0 {
		return nil, errors.New(errors.ErrCodeValidation,
			"focus predicate matched no rows in track %q", opts.Track)
	}
	return targets, nil
}

// splitRows turns the current layout rows into focus windows: per row, the
// targets of its parent are clamped to the row's window, merged, and emitted
// as one new row each. A row whose window equals its single merged target
// keeps its identity.
func splitRows(current []layout.Seq, targets map[string][]span) []layout.Seq {
	used := make(map[string]struct{}, len(current))
	for _, s := range current {
		used[s.ID] = struct{}{}
	}

	var rows []layout.Seq
	for _, s := range current {
		merged := mergeSpans(clampSpans(targets[s.ParentID], s))
		for _, iv := range merged {
			row := s
			row.Start = iv.lo - 1
			row.End = iv.hi
			if row.Start != s.Start || row.End != s.End {
				row.ID = uniqueWindowID(s.ID, iv, used)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// clampSpans intersects target intervals with one row's visible window.
func clampSpans(spans []span, s layout.Seq) []span {
	var out []span
	for _, iv := range spans {
		lo, hi := max(iv.lo, s.Start+1), min(iv.hi, s.End)
		if lo <= hi {
			out = append(out, span{lo, hi})
		}
	}
	return out
}

// mergeSpans unions overlapping or adjacent intervals, endpoint-sweep style.
func mergeSpans(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	slices.SortFunc(spans, func(a, b span) int { return a.lo - b.lo })

	out := spans[:1]
	for _, iv := range spans[1:] {
		last := &out[len(out)-1]
		if iv.lo <= last.hi+1 {
			if iv.hi > last.hi {
				last.hi = iv.hi
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// uniqueWindowID generates a fresh id for a split window, suffixing a
// counter on collision.
func uniqueWindowID(base string, iv span, used map[string]struct{}) string {
	id := fmt.Sprintf("%s:%d-%d", base, iv.lo, iv.hi)
	for i := 2; ; i++ {
		if _, exists := used[id]; !exists {
			used[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s:%d-%d_%d", base, iv.lo, iv.hi, i)
	}
}
