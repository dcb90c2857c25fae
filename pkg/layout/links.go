package layout

import (
	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// Orientation classifies a projected link: colinear ribbons connect two
// intervals running the same way, inverted ones must twist.
type Orientation int8

const (
	// OrientColinear means both projected intervals run in the same
	// direction.
	OrientColinear Orientation = iota
	// OrientInverted means the projected intervals run opposite ways and
	// the ribbon crosses itself.
	OrientInverted
)

// String returns "colinear" or "inverted".
func (o Orientation) String() string {
	if o == OrientInverted {
		return "inverted"
	}
	return "colinear"
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// LinkRow is one link joined with shared coordinates on both ends.
//
// Unlike features, link endpoints preserve their direction: X > Xend means
// this side runs backwards in display space, either because the input
// interval was reversed or because the sequence is flipped. Orientation is
// derived from whether the two sides' directions agree.
type LinkRow struct {
	Link    track.Link
	TrackID string

	SeqID string // layout row of side one
	X     int
	Xend  int
	Y     float64

	SeqID2 string // layout row of side two
	X2     int
	Xend2  int
	Y2     float64

	Orientation Orientation
}

// LinkView is the projected snapshot of one link track.
type LinkView struct {
	TrackID string
	Rows    []LinkRow
}

// projectLinks derives shared coordinates for both ends of every link row.
// Each end resolves and clips independently; the row is emitted once per
// pair of overlapping windows. Reference resolution follows the same
// strict/lenient policy as feature projection, applied per side.
func (l *Layout) projectLinks(t *track.LinkTrack) (*LinkView, *Diagnostic, error) {
	view := &LinkView{TrackID: t.ID, Rows: make([]LinkRow, 0, len(t.Rows))}
	diag := Diagnostic{Track: t.ID}

	for _, lk := range t.Rows {
		w1, ok, err := l.resolveSide(&diag, lk.SeqID1)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		w2, ok, err := l.resolveSide(&diag, lk.SeqID2)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}

		for _, i1 := range w1 {
			for _, i2 := range w2 {
				row, ok := l.projectLinkRow(lk, t.ID, l.seqs[i1], l.seqs[i2])
				if ok {
					view.Rows = append(view.Rows, row)
				}
			}
		}
	}

	if diag.Dropped == 0 {
		return view, nil, nil
	}
	return view, &diag, nil
}

// resolveSide resolves one link end to its layout windows. ok is false when
// the row should be skipped (filtered or lenient-dropped).
func (l *Layout) resolveSide(diag *Diagnostic, seqID string) ([]int, bool, error) {
	windows := l.windowsFor(seqID)
	if len(windows) > 0 {
		return windows, true, nil
	}
	if l.wasKnown(seqID) {
		return nil, false, nil
	}
	if l.opts.Strict {
		return nil, false, errors.New(errors.ErrCodeReference,
			"link references unknown sequence %q", seqID)
	}
	diag.record(seqID)
	return nil, false, nil
}

// projectLinkRow places one link onto one window pair, applying the marginal
// policy per side. ok is false when either side misses its window.
func (l *Layout) projectLinkRow(lk track.Link, trackID string, w1, w2 Seq) (LinkRow, bool) {
	s1, e1, ok := clipSpan(lk.Start1, lk.End1, w1, l.opts.Marginal)
	if !ok {
		return LinkRow{}, false
	}
	s2, e2, ok := clipSpan(lk.Start2, lk.End2, w2, l.opts.Marginal)
	if !ok {
		return LinkRow{}, false
	}

	row := LinkRow{
		Link:    lk,
		TrackID: trackID,
		SeqID:   w1.ID,
		X:       w1.project(s1),
		Xend:    w1.project(e1),
		Y:       w1.Y,
		SeqID2:  w2.ID,
		X2:      w2.project(s2),
		Xend2:   w2.project(e2),
		Y2:      w2.Y,
	}

	if (row.X <= row.Xend) != (row.X2 <= row.Xend2) {
		row.Orientation = OrientInverted
	}
	return row, true
}

// clipSpan applies the marginal policy to one possibly-reversed interval
// against a window, preserving the interval's direction. ok is false for
// zero overlap or for marginal rows under the drop policy.
func clipSpan(start, end int, w Seq, policy MarginalPolicy) (int, int, bool) {
	lo, hi := start, end
	reversed := lo > hi
	if reversed {
		lo, hi = hi, lo
	}

	if hi <= w.Start || lo > w.End {
		return 0, 0, false
	}

	inside := lo > w.Start && hi <= w.End
	switch policy {
	case MarginalDrop:
		if !inside {
			return 0, 0, false
		}
	case MarginalTrim:
		lo = max(lo, w.Start+1)
		hi = min(hi, w.End)
	case MarginalKeep:
		// project as-is
	}

	if reversed {
		return hi, lo, true
	}
	return lo, hi, true
}
