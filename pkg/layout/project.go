package layout

import (
	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// maxDiagExamples bounds the example ids carried by one diagnostic.
const maxDiagExamples = 3

// Diagnostic is the aggregated report of rows dropped during lenient
// reference resolution for one track.
type Diagnostic struct {
	Track    string   `json:"track"`
	Dropped  int      `json:"dropped"`
	Examples []string `json:"examples"` // up to three offending seq_ids
}

func (d *Diagnostic) record(seqID string) {
	d.Dropped++
	if len(d.Examples) < maxDiagExamples {
		d.Examples = append(d.Examples, seqID)
	}
}

// FeatRow is one feature joined with its shared coordinates. The source row
// is carried whole so downstream consumers see every original column.
//
// X <= Xend always holds; a flipped sequence mirrors the interval and
// toggles Strand instead of swapping the endpoints.
type FeatRow struct {
	Feature track.Feature
	TrackID string
	SeqID   string // layout row (window) the feature landed on
	X       int
	Xend    int
	Y       float64
	Strand  track.Strand // display strand after sequence orientation
}

// FeatView is the projected snapshot of one feature track.
type FeatView struct {
	TrackID string
	Rows    []FeatRow
}

// projectFeats derives the shared coordinates for every row of a feature
// track against the current sequence layout.
//
// Resolution policy: a seq_id never seen in the layout is an unresolved
// reference (strict: REFERENCE error; lenient: dropped and counted); a
// seq_id that was laid out but filtered away by pick or focus is skipped
// silently. Rows with zero overlap against all windows of their sequence are
// likewise silently dropped.
func (l *Layout) projectFeats(t *track.FeatTrack) (*FeatView, *Diagnostic, error) {
	view := &FeatView{TrackID: t.ID, Rows: make([]FeatRow, 0, len(t.Rows))}
	diag := Diagnostic{Track: t.ID}
	transform := l.opts.Transforms[t.ID]

	for _, f := range t.Rows {
		start, end := f.Start, f.End
		if transform != nil {
			start, end = transform(start, end)
		}

		windows := l.windowsFor(f.SeqID)
		if len(windows) == 0 {
			if l.wasKnown(f.SeqID) {
				continue
			}
			if l.opts.Strict {
				return nil, nil, errors.New(errors.ErrCodeReference,
					"feature %q references unknown sequence %q", f.FeatID, f.SeqID)
			}
			diag.record(f.SeqID)
			continue
		}

		for _, wi := range windows {
			w := l.seqs[wi]
			row, ok := projectFeatRow(f, t.ID, w, start, end, l.opts.Marginal)
			if ok {
				view.Rows = append(view.Rows, row)
			}
		}
	}

	if diag.Dropped == 0 {
		return view, nil, nil
	}
	return view, &diag, nil
}

// projectFeatRow places one feature interval onto one window, applying the
// marginal policy. ok is false when the row does not land on this window.
func projectFeatRow(f track.Feature, trackID string, w Seq, start, end int, policy MarginalPolicy) (FeatRow, bool) {
	if end <= w.Start || start > w.End {
		return FeatRow{}, false // zero overlap
	}

	inside := start > w.Start && end <= w.End
	switch policy {
	case MarginalDrop:
		if !inside {
			return FeatRow{}, false
		}
	case MarginalTrim:
		start = max(start, w.Start+1)
		end = min(end, w.End)
	case MarginalKeep:
		// project as-is
	}

	x, xend := w.project(start), w.project(end)
	strand := f.Strand
	if w.Reverse {
		x, xend = xend, x
		strand = strand.Flip()
	}

	return FeatRow{
		Feature: f,
		TrackID: trackID,
		SeqID:   w.ID,
		X:       x,
		Xend:    xend,
		Y:       w.Y,
		Strand:  strand,
	}, true
}
