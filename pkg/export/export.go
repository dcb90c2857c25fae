// Package export serializes laid-out state into a self-contained document:
// the sequence table with derived coordinates plus every projected feature
// and link view. The document is what the serve surface returns, what the
// store persists, and what downstream renderers consume.
//
// Documents are plain data with deterministic ordering (tracks in
// registration order, rows in projection order), so serializing the same
// layout twice yields byte-identical output.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/track"
)

// Version is the document schema version. Readers reject documents written
// by a newer schema.
const Version = 1

// Document is a serialized layout snapshot.
type Document struct {
	Version     int                 `json:"version" bson:"version"`
	Width       int                 `json:"width" bson:"width"`
	Bins        []string            `json:"bins" bson:"bins"`
	Seqs        []layout.SeqRow     `json:"seqs" bson:"seqs"`
	FeatTracks  []FeatTrackDoc      `json:"feat_tracks" bson:"feat_tracks"`
	LinkTracks  []LinkTrackDoc      `json:"link_tracks" bson:"link_tracks"`
	Diagnostics []layout.Diagnostic `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
}

// FeatTrackDoc is one projected feature track.
type FeatTrackDoc struct {
	TrackID string    `json:"track_id" bson:"track_id"`
	Rows    []FeatDoc `json:"rows" bson:"rows"`
}

// FeatDoc is one projected feature row: the original columns joined with the
// shared coordinates.
type FeatDoc struct {
	FeatID   string       `json:"feat_id,omitempty" bson:"feat_id,omitempty"`
	SeqID    string       `json:"seq_id" bson:"seq_id"`
	Start    int          `json:"start" bson:"start"`
	End      int          `json:"end" bson:"end"`
	Strand   track.Strand `json:"strand" bson:"strand"`
	ParentID string       `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Meta     track.Meta   `json:"meta,omitempty" bson:"meta,omitempty"`

	Window  string       `json:"window" bson:"window"` // layout row the feature landed on
	X       int          `json:"x" bson:"x"`
	Xend    int          `json:"xend" bson:"xend"`
	Y       float64      `json:"y" bson:"y"`
	Display track.Strand `json:"display_strand" bson:"display_strand"`
}

// LinkTrackDoc is one projected link track.
type LinkTrackDoc struct {
	TrackID string    `json:"track_id" bson:"track_id"`
	Rows    []LinkDoc `json:"rows" bson:"rows"`
}

// LinkDoc is one projected link row with shared coordinates on both ends.
type LinkDoc struct {
	SeqID1 string     `json:"seq_id1" bson:"seq_id1"`
	Start1 int        `json:"start1" bson:"start1"`
	End1   int        `json:"end1" bson:"end1"`
	SeqID2 string     `json:"seq_id2" bson:"seq_id2"`
	Start2 int        `json:"start2" bson:"start2"`
	End2   int        `json:"end2" bson:"end2"`
	Meta   track.Meta `json:"meta,omitempty" bson:"meta,omitempty"`

	Window  string  `json:"window" bson:"window"`
	X       int     `json:"x" bson:"x"`
	Xend    int     `json:"xend" bson:"xend"`
	Y       float64 `json:"y" bson:"y"`
	Window2 string  `json:"window2" bson:"window2"`
	X2      int     `json:"x2" bson:"x2"`
	Xend2   int     `json:"xend2" bson:"xend2"`
	Y2      float64 `json:"y2" bson:"y2"`

	Orientation string `json:"orientation" bson:"orientation"`
}

// Snapshot captures the full laid-out state of a layout.
func Snapshot(l *layout.Layout) (*Document, error) {
	doc := &Document{
		Version:     Version,
		Width:       l.Width(),
		Bins:        l.Bins(),
		Seqs:        l.Seqs(),
		Diagnostics: l.Diagnostics(),
	}

	for _, id := range l.FeatTrackIDs() {
		view, err := l.Feats(id)
		if err != nil {
			return nil, err
		}
		td := FeatTrackDoc{TrackID: id, Rows: make([]FeatDoc, len(view.Rows))}
		for i, row := range view.Rows {
			td.Rows[i] = featDoc(row)
		}
		doc.FeatTracks = append(doc.FeatTracks, td)
	}

	for _, id := range l.LinkTrackIDs() {
		view, err := l.Links(id)
		if err != nil {
			return nil, err
		}
		td := LinkTrackDoc{TrackID: id, Rows: make([]LinkDoc, len(view.Rows))}
		for i, row := range view.Rows {
			td.Rows[i] = linkDoc(row)
		}
		doc.LinkTracks = append(doc.LinkTracks, td)
	}

	return doc, nil
}

func featDoc(row layout.FeatRow) FeatDoc {
	return FeatDoc{
		FeatID:   row.Feature.FeatID,
		SeqID:    row.Feature.SeqID,
		Start:    row.Feature.Start,
		End:      row.Feature.End,
		Strand:   row.Feature.Strand,
		ParentID: row.Feature.ParentID,
		Meta:     row.Feature.Meta,
		Window:   row.SeqID,
		X:        row.X,
		Xend:     row.Xend,
		Y:        row.Y,
		Display:  row.Strand,
	}
}

func linkDoc(row layout.LinkRow) LinkDoc {
	return LinkDoc{
		SeqID1:      row.Link.SeqID1,
		Start1:      row.Link.Start1,
		End1:        row.Link.End1,
		SeqID2:      row.Link.SeqID2,
		Start2:      row.Link.Start2,
		End2:        row.Link.End2,
		Meta:        row.Link.Meta,
		Window:      row.SeqID,
		X:           row.X,
		Xend:        row.Xend,
		Y:           row.Y,
		Window2:     row.SeqID2,
		X2:          row.X2,
		Xend2:       row.Xend2,
		Y2:          row.Y2,
		Orientation: row.Orientation.String(),
	}
}

// Marshal serializes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "marshal layout document")
	}
	return data, nil
}

// Unmarshal parses a JSON document and checks its schema version.
func Unmarshal(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse layout document")
	}
	if doc.Version > Version {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"layout document version %d is newer than supported version %d", doc.Version, Version)
	}
	return &doc, nil
}

// Write snapshots a layout and streams it as JSON.
func Write(w io.Writer, l *layout.Layout) error {
	doc, err := Snapshot(l)
	if err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write layout document")
	}
	return nil
}

// Read parses a JSON document from a stream.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read layout document")
	}
	return Unmarshal(data)
}

// WriteFile snapshots a layout into a JSON file.
func WriteFile(path string, l *layout.Layout) error {
	doc, err := Snapshot(l)
	if err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// ReadFile parses a JSON document from a file.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	return Unmarshal(data)
}
