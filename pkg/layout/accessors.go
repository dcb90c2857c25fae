package layout

import (
	"slices"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// Accessors reconstitute tracks joined with their current layout
// coordinates. Every accessor returns a snapshot: a later transform produces
// a new Layout and does not retroactively update views taken from this one.

// SeqRow is the accessor view of one laid-out sequence.
type SeqRow struct {
	SeqID    string       `json:"seq_id" bson:"seq_id"`
	ParentID string       `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	BinID    string       `json:"bin_id" bson:"bin_id"`
	Length   int          `json:"length" bson:"length"`
	Start    int          `json:"start" bson:"start"`
	End      int          `json:"end" bson:"end"`
	Strand   track.Strand `json:"strand" bson:"strand"`
	BinIndex int          `json:"bin_index" bson:"bin_index"`
	SeqIndex int          `json:"seq_index" bson:"seq_index"`
	XOffset  int          `json:"x_offset" bson:"x_offset"`
	Y        float64      `json:"y" bson:"y"`
}

// Seqs returns the sequence table with all derived columns.
func (l *Layout) Seqs() []SeqRow {
	rows := make([]SeqRow, len(l.seqs))
	for i, s := range l.seqs {
		rows[i] = SeqRow{
			SeqID:    s.ID,
			BinID:    s.BinID,
			Length:   s.Length,
			Start:    s.Start,
			End:      s.End,
			Strand:   s.Strand(),
			BinIndex: s.BinIndex,
			SeqIndex: s.SeqIndex,
			XOffset:  s.XOffset,
			Y:        s.Y,
		}
		if s.ParentID != s.ID {
			rows[i].ParentID = s.ParentID
		}
	}
	return rows
}

// SeqRows returns copies of the internal sequence rows, including window and
// orientation state. Transform operations use these as the starting point
// for a derived layout.
func (l *Layout) SeqRows() []Seq { return slices.Clone(l.seqs) }

// Bins returns the bin ids in their current display order.
func (l *Layout) Bins() []string { return slices.Clone(l.bins) }

// Seq returns the layout row with the given display id.
func (l *Layout) Seq(id string) (Seq, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Seq{}, false
	}
	return l.seqs[i], true
}

// HasBin reports whether the bin is part of the current layout.
func (l *Layout) HasBin(id string) bool {
	return slices.Contains(l.bins, id)
}

// Feats returns the projected view of a feature track.
// Returns a CONFIGURATION error for an unknown track id.
func (l *Layout) Feats(trackID string) (*FeatView, error) {
	v, ok := l.feats[trackID]
	if !ok {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown feature track %q", trackID)
	}
	return &FeatView{TrackID: v.TrackID, Rows: slices.Clone(v.Rows)}, nil
}

// Links returns the projected view of a link track.
// Returns a CONFIGURATION error for an unknown track id.
func (l *Layout) Links(trackID string) (*LinkView, error) {
	v, ok := l.links[trackID]
	if !ok {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown link track %q", trackID)
	}
	return &LinkView{TrackID: v.TrackID, Rows: slices.Clone(v.Rows)}, nil
}

// FeatTrackIDs returns the feature track names in registration order.
func (l *Layout) FeatTrackIDs() []string {
	ids := make([]string, 0, len(l.feats))
	for _, t := range l.reg.FeatTracks() {
		ids = append(ids, t.ID)
	}
	return ids
}

// LinkTrackIDs returns the link track names in registration order.
func (l *Layout) LinkTrackIDs() []string {
	ids := make([]string, 0, len(l.links))
	for _, t := range l.reg.LinkTracks() {
		ids = append(ids, t.ID)
	}
	return ids
}

// Diagnostics returns the aggregated lenient-mode drop reports collected
// during the last projection, one per affected track.
func (l *Layout) Diagnostics() []Diagnostic { return slices.Clone(l.diags) }

// Registry returns the registry this layout was built from.
func (l *Layout) Registry() *track.Registry { return l.reg }

// Options returns the options this layout was built with.
func (l *Layout) Options() Options { return l.opts }

// Width returns the x extent of the widest bin, i.e. the width of the shared
// coordinate space.
func (l *Layout) Width() int {
	width := 0
	for _, s := range l.seqs {
		if end := s.XOffset + s.Width(); end > width {
			width = end
		}
	}
	return width
}
