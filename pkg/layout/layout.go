// Package layout is the coordinate engine of seqlane. It places every
// sequence of a registry into a shared x/y space (bins stacked into rows,
// sequences concatenated along x) and projects feature and link tracks into
// that space.
//
// A Layout is a persistent value: transform operations (flip, pick, focus in
// the transform subpackage) derive a new fully consistent Layout and never
// mutate the one they were given. Projected views handed out by accessors are
// snapshots of the state they were taken from.
package layout

import (
	"fmt"
	"slices"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// MarginalPolicy decides what happens to a feature or link row that spans
// outside the visible window of its sequence (only possible after focus or
// with inferred sequence spans).
type MarginalPolicy string

const (
	// MarginalTrim clips the interval to the window. Default.
	MarginalTrim MarginalPolicy = "trim"
	// MarginalDrop removes rows not fully inside a window.
	MarginalDrop MarginalPolicy = "drop"
	// MarginalKeep projects coordinates as-is; rows may extend outside the
	// visible sequence span.
	MarginalKeep MarginalPolicy = "keep"
)

// ParseMarginalPolicy validates a user-supplied policy name.
func ParseMarginalPolicy(s string) (MarginalPolicy, error) {
	switch MarginalPolicy(s) {
	case MarginalTrim, MarginalDrop, MarginalKeep:
		return MarginalPolicy(s), nil
	case "":
		return MarginalTrim, nil
	}
	return "", errors.New(errors.ErrCodeValidation, "invalid marginal policy %q (trim|drop|keep)", s)
}

// CoordTransform rewrites sequence-local coordinates before projection.
// Used for strand-aware sub-feature offsetting, e.g. amino-acid to
// nucleotide coordinate conversion. Must be pure.
type CoordTransform func(start, end int) (int, int)

// Options configure layout construction.
type Options struct {
	// BinOrder lays bins out in the given order instead of first appearance.
	// Listing a subset drops the unlisted bins.
	BinOrder []string
	// SeqOrder reorders sequences within their bins: listed sequences come
	// first in list order, unlisted ones keep their input order.
	SeqOrder []string
	// Strict makes unresolved seq_id references fatal (REFERENCE error)
	// instead of dropping rows with a diagnostic.
	Strict bool
	// Gap inserts a fixed spacer between consecutive sequences of a bin.
	// Default 0: gapless concatenation.
	Gap int
	// ZeroStart extends inferred sequences back to coordinate zero instead
	// of covering only the observed feature/link span.
	ZeroStart bool
	// Marginal is the policy for rows spanning outside their window.
	Marginal MarginalPolicy
	// Transforms maps a feature track id to a coordinate transform applied
	// to its rows before projection.
	Transforms map[string]CoordTransform
}

// Seq is one laid-out sequence row: the visible window of a contig placed in
// the shared coordinate space. After a focus split, several Seq rows may
// share one ParentID.
//
// The window covers the sequence-local positions p with Start < p <= End
// (positions are 1-based inclusive, Start is the coordinate origin of the
// window). A full, unfocused sequence has Start == 0 and End == Length.
type Seq struct {
	ID       string // display id; synthetic after focus splits
	ParentID string // seq_id that feature/link rows reference
	BinID    string
	Length   int // full biological length
	Start    int // window origin (0 for full sequences)
	End      int // window end, inclusive
	Reverse  bool

	// Derived by layout; recomputed on every state change.
	BinIndex int
	SeqIndex int
	XOffset  int
	Y        float64
}

// Width returns the oriented extent this row occupies along x.
func (s Seq) Width() int { return s.End - s.Start }

// Strand returns the display orientation as a strand value.
func (s Seq) Strand() track.Strand {
	if s.Reverse {
		return track.StrandReverse
	}
	return track.StrandForward
}

// project maps a sequence-local position into shared x. Flipped windows
// mirror around the window so that Start and End trade places.
func (s Seq) project(p int) int {
	if s.Reverse {
		return s.XOffset + (s.End - p)
	}
	return s.XOffset + (p - s.Start)
}

// Layout is the laid-out state: sequence rows with derived coordinates plus
// the projected feature and link views for every registered track.
type Layout struct {
	reg  *track.Registry
	opts Options

	seqs     []Seq
	byID     map[string]int
	byParent map[string][]int // parent seq_id -> row indices, ordered by Start
	bins     []string

	// known holds every seq_id that was part of the originally laid-out
	// sequence set. Rows referencing a known-but-filtered sequence are
	// dropped silently (the filter was requested); ids never seen count as
	// unresolved references.
	known map[string]struct{}

	feats map[string]*FeatView
	links map[string]*LinkView
	diags []Diagnostic
}

// New lays out the sequences of a registry. If the registry has no sequence
// table, one synthetic sequence per distinct seq_id is inferred from the
// first feature track (else the first link track), spanning the observed
// coordinates. Returns a CONFIGURATION error when nothing is derivable and a
// VALIDATION error for unknown ids in the order options.
func New(reg *track.Registry, opts Options) (*Layout, error) {
	if opts.Marginal == "" {
		opts.Marginal = MarginalTrim
	}

	rows, err := seedRows(reg, opts)
	if err != nil {
		return nil, err
	}

	// The known set must cover the pre-filter sequence set: a bin_order
	// subset is an explicit filter, and rows referencing its victims are
	// dropped silently rather than reported as unresolved.
	known := make(map[string]struct{}, len(rows))
	for _, s := range rows {
		known[s.ParentID] = struct{}{}
	}

	rows, err = applyOrder(rows, opts)
	if err != nil {
		return nil, err
	}

	return assemble(reg, rows, opts, known)
}

// Derive builds a new layout from explicit sequence rows, carrying over this
// layout's filter history. Transform operations use it to produce their
// result state; the receiver is left untouched.
func (l *Layout) Derive(reg *track.Registry, rows []Seq, opts Options) (*Layout, error) {
	return assemble(reg, rows, opts, l.known)
}

// assemble validates rows, recomputes all derived fields, and projects every
// track. Any error leaves no partial state behind.
func assemble(reg *track.Registry, rows []Seq, opts Options, known map[string]struct{}) (*Layout, error) {
	l := &Layout{
		reg:      reg,
		opts:     opts,
		seqs:     slices.Clone(rows),
		byID:     make(map[string]int, len(rows)),
		byParent: make(map[string][]int, len(rows)),
		known:    known,
		feats:    make(map[string]*FeatView),
		links:    make(map[string]*LinkView),
	}

	if err := l.recompute(); err != nil {
		return nil, err
	}
	if err := l.projectAll(); err != nil {
		return nil, err
	}
	return l, nil
}

// recompute assigns bin_index, seq_index, x_offset and y to every row.
// Bins are ordered by first appearance in the row slice; rows keep their
// relative order within a bin. Offsets concatenate oriented window widths
// plus the configured gap.
func (l *Layout) recompute() error {
	l.bins = l.bins[:0]
	binIndex := make(map[string]int)
	grouped := make(map[string][]int, 8)

	for i, s := range l.seqs {
		if s.End < s.Start || s.Start < 0 {
			return errors.New(errors.ErrCodeConfiguration,
				"sequence %q has invalid window %d..%d", s.ID, s.Start, s.End)
		}
		if _, dup := l.byID[s.ID]; dup {
			return errors.New(errors.ErrCodeConfiguration, "duplicate layout seq id %q", s.ID)
		}
		l.byID[s.ID] = i
		l.byParent[s.ParentID] = append(l.byParent[s.ParentID], i)

		if _, ok := binIndex[s.BinID]; !ok {
			binIndex[s.BinID] = len(l.bins)
			l.bins = append(l.bins, s.BinID)
		}
		grouped[s.BinID] = append(grouped[s.BinID], i)
	}

	for bi, bin := range l.bins {
		offset := 0
		for si, i := range grouped[bin] {
			s := &l.seqs[i]
			s.BinIndex = bi
			s.SeqIndex = si
			s.XOffset = offset
			s.Y = float64(bi)
			offset += s.Width() + l.opts.Gap
		}
	}

	// Windows of one parent ordered by Start so projection scans them
	// deterministically.
	for _, idxs := range l.byParent {
		slices.SortStableFunc(idxs, func(a, b int) int { return l.seqs[a].Start - l.seqs[b].Start })
	}
	return nil
}

// projectAll recomputes the derived feature and link views for every track.
func (l *Layout) projectAll() error {
	l.diags = nil
	for _, t := range l.reg.FeatTracks() {
		view, diag, err := l.projectFeats(t)
		if err != nil {
			return err
		}
		l.feats[t.ID] = view
		if diag != nil {
			l.diags = append(l.diags, *diag)
		}
	}
	for _, t := range l.reg.LinkTracks() {
		view, diag, err := l.projectLinks(t)
		if err != nil {
			return err
		}
		l.links[t.ID] = view
		if diag != nil {
			l.diags = append(l.diags, *diag)
		}
	}
	return nil
}

// seedRows produces the initial sequence rows, either from the registry's
// sequence table or by inference from feature/link coordinates.
func seedRows(reg *track.Registry, opts Options) ([]Seq, error) {
	if reg.HasSequences() {
		seqs := reg.Sequences()
		rows := make([]Seq, len(seqs))
		for i, s := range seqs {
			rows[i] = Seq{
				ID:       s.SeqID,
				ParentID: s.SeqID,
				BinID:    s.BinID,
				Length:   s.Length,
				Start:    0,
				End:      s.Length,
			}
		}
		return rows, nil
	}
	return inferRows(reg, opts)
}

// observedSpan tracks the coordinate range seen for one inferred sequence.
type observedSpan struct {
	min, max int
}

func (o *observedSpan) add(start, end int) {
	if start > end {
		start, end = end, start
	}
	if o.min == 0 || start < o.min {
		o.min = start
	}
	if end > o.max {
		o.max = end
	}
}

// inferRows derives one synthetic sequence per distinct seq_id seen in the
// first feature track, falling back to the first link track. The inferred
// window covers the observed span only, unless ZeroStart extends it back to
// coordinate zero.
func inferRows(reg *track.Registry, opts Options) ([]Seq, error) {
	var order []string
	spans := make(map[string]*observedSpan)
	observe := func(seqID string, start, end int) {
		sp, ok := spans[seqID]
		if !ok {
			sp = &observedSpan{}
			spans[seqID] = sp
			order = append(order, seqID)
		}
		sp.add(start, end)
	}

	switch {
	case len(reg.FeatTracks()) > 0:
		for _, f := range reg.FeatTracks()[0].Rows {
			observe(f.SeqID, f.Start, f.End)
		}
	case len(reg.LinkTracks()) > 0:
		for _, lk := range reg.LinkTracks()[0].Rows {
			observe(lk.SeqID1, lk.Start1, lk.End1)
			observe(lk.SeqID2, lk.Start2, lk.End2)
		}
	default:
		return nil, errors.New(errors.ErrCodeConfiguration,
			"no sequences given and none derivable: registry has no feature or link tracks")
	}

	rows := make([]Seq, 0, len(order))
	for _, id := range order {
		sp := spans[id]
		start := sp.min - 1
		if opts.ZeroStart {
			start = 0
		}
		rows = append(rows, Seq{
			ID:       id,
			ParentID: id,
			BinID:    id,
			Length:   sp.max,
			Start:    start,
			End:      sp.max,
		})
	}
	return rows, nil
}

// applyOrder rearranges seed rows per the explicit order options.
func applyOrder(rows []Seq, opts Options) ([]Seq, error) {
	if len(opts.BinOrder) > 0 {
		binSeen := make(map[string]bool, len(rows))
		for _, s := range rows {
			binSeen[s.BinID] = true
		}
		rank := make(map[string]int, len(opts.BinOrder))
		for i, bin := range opts.BinOrder {
			if !binSeen[bin] {
				return nil, errors.New(errors.ErrCodeValidation, "bin_order references unknown bin %q", bin)
			}
			if _, dup := rank[bin]; dup {
				return nil, errors.New(errors.ErrCodeValidation, "bin_order lists bin %q twice", bin)
			}
			rank[bin] = i
		}
		kept := make([]Seq, 0, len(rows))
		for _, s := range rows {
			if _, ok := rank[s.BinID]; ok {
				kept = append(kept, s)
			}
		}
		slices.SortStableFunc(kept, func(a, b Seq) int { return rank[a.BinID] - rank[b.BinID] })
		rows = kept
	}

	if len(opts.SeqOrder) > 0 {
		present := make(map[string]int, len(rows))
		for i, s := range rows {
			present[s.ID] = i
		}
		rank := make(map[string]int, len(opts.SeqOrder))
		for i, id := range opts.SeqOrder {
			if _, ok := present[id]; !ok {
				return nil, errors.New(errors.ErrCodeValidation, "seq_order references unknown sequence %q", id)
			}
			rank[id] = i
		}
		n := len(opts.SeqOrder)
		slices.SortStableFunc(rows, func(a, b Seq) int {
			ra, oka := rank[a.ID]
			rb, okb := rank[b.ID]
			if !oka {
				ra = n + present[a.ID]
			}
			if !okb {
				rb = n + present[b.ID]
			}
			return ra - rb
		})
	}
	return rows, nil
}

// windowsFor returns the layout rows of the given original seq_id,
// ordered by window start. Nil when the sequence is not laid out.
func (l *Layout) windowsFor(parentID string) []int {
	return l.byParent[parentID]
}

// wasKnown reports whether the seq_id was part of the original sequence set,
// i.e. its absence now is the result of an explicit subset.
func (l *Layout) wasKnown(seqID string) bool {
	_, ok := l.known[seqID]
	return ok
}

func (l *Layout) String() string {
	return fmt.Sprintf("layout{%d bins, %d seqs, %d tracks}", len(l.bins), len(l.seqs), len(l.feats)+len(l.links))
}
