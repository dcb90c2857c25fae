package track

import (
	"fmt"

	"github.com/seqlane/seqlane/pkg/errors"
)

// Meta stores passthrough columns that the layout engine does not interpret
// (scores, identities, names from the source file). Values survive ingestion,
// projection, and export untouched. Meta maps may be nil.
type Meta map[string]any

// Clone returns a shallow copy of the metadata, or nil for nil input.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Strand is the orientation attribute of a feature.
// It is independent of the interval direction: feature intervals always have
// Start <= End, and Strand records which genomic strand the element lives on.
type Strand int8

const (
	// StrandUnknown is the "." strand of GFF/BED.
	StrandUnknown Strand = iota
	// StrandForward is the "+" strand.
	StrandForward
	// StrandReverse is the "-" strand.
	StrandReverse
)

// ParseStrand converts the conventional +/-/. column value.
// Empty input maps to StrandUnknown.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return StrandForward, nil
	case "-":
		return StrandReverse, nil
	case ".", "", "?":
		return StrandUnknown, nil
	}
	return StrandUnknown, errors.New(errors.ErrCodeInvalidFormat, "invalid strand %q", s)
}

// Flip returns the opposite strand. Unknown stays unknown.
func (s Strand) Flip() Strand {
	switch s {
	case StrandForward:
		return StrandReverse
	case StrandReverse:
		return StrandForward
	}
	return StrandUnknown
}

// MarshalText implements encoding.TextMarshaler so strands serialize as
// their +/-/. form.
func (s Strand) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strand) UnmarshalText(text []byte) error {
	parsed, err := ParseStrand(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// String returns the conventional single-character representation.
func (s Strand) String() string {
	switch s {
	case StrandForward:
		return "+"
	case StrandReverse:
		return "-"
	}
	return "."
}

// Sequence is one row of the sequence table: a contig or chromosome that the
// layout engine will place on a row.
type Sequence struct {
	SeqID  string // unique key, required
	BinID  string // group (typically one genome); defaults to SeqID
	Length int    // non-negative, required
	Meta   Meta
}

// Validate checks the required sequence columns.
func (s Sequence) Validate() error {
	if err := errors.ValidateID(s.SeqID); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "sequence seq_id")
	}
	if s.BinID != "" {
		if err := errors.ValidateID(s.BinID); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "sequence %q bin_id", s.SeqID)
		}
	}
	if s.Length < 0 {
		return errors.New(errors.ErrCodeConfiguration, "sequence %q has negative length %d", s.SeqID, s.Length)
	}
	return nil
}

// Feature is one row of a feature track: an annotated element on a sequence.
// Coordinates are sequence-local, 1-based, inclusive, with Start <= End.
type Feature struct {
	FeatID   string // auto-generated by the registry if empty
	SeqID    string // foreign key into the sequence table, required
	Start    int
	End      int
	Strand   Strand
	ParentID string // optional sub-feature linkage (e.g. CDS within gene)
	Meta     Meta
}

// Validate checks the required feature columns.
func (f Feature) Validate() error {
	if f.SeqID == "" {
		return errors.New(errors.ErrCodeConfiguration, "feature %s is missing seq_id", f.describe())
	}
	if f.Start < 1 || f.End < 1 {
		return errors.New(errors.ErrCodeConfiguration,
			"feature %s has non-positive coordinates %d..%d", f.describe(), f.Start, f.End)
	}
	if f.Start > f.End {
		return errors.New(errors.ErrCodeConfiguration,
			"feature %s has start %d > end %d", f.describe(), f.Start, f.End)
	}
	return nil
}

func (f Feature) describe() string {
	if f.FeatID != "" {
		return fmt.Sprintf("%q", f.FeatID)
	}
	return fmt.Sprintf("on %q", f.SeqID)
}

// Link is one row of a link track: a pairwise connection between two
// sequence-local intervals (e.g. a synteny block or alignment hit).
//
// Side one always has Start1 <= End1. Side two may be reversed
// (Start2 > End2), which encodes an inverted alignment; ingest adapters
// normalize a "-" strand column into a reversed second interval.
type Link struct {
	SeqID1 string
	Start1 int
	End1   int
	SeqID2 string
	Start2 int
	End2   int
	Meta   Meta
}

// Validate checks the required link columns.
func (l Link) Validate() error {
	if l.SeqID1 == "" || l.SeqID2 == "" {
		return errors.New(errors.ErrCodeConfiguration,
			"link %q->%q is missing a seq_id", l.SeqID1, l.SeqID2)
	}
	if l.Start1 < 1 || l.End1 < 1 || l.Start2 < 1 || l.End2 < 1 {
		return errors.New(errors.ErrCodeConfiguration,
			"link %q->%q has non-positive coordinates", l.SeqID1, l.SeqID2)
	}
	if l.Start1 > l.End1 {
		return errors.New(errors.ErrCodeConfiguration,
			"link %q->%q has start1 %d > end1 %d (encode inversions on side two)",
			l.SeqID1, l.SeqID2, l.Start1, l.End1)
	}
	return nil
}

// Reversed reports whether the second interval runs backwards, i.e. the link
// represents an inverted alignment in its input coordinates.
func (l Link) Reversed() bool { return l.Start2 > l.End2 }
