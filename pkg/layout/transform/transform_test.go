package transform

import (
	"reflect"
	"testing"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/track"
)

// fixture builds three single-sequence bins with a gene track and a link:
//
//	g1: A (100), genes tnpA 10..20 (+), accB 50..60 (-)
//	g2: B (50),  gene tnpA2 10..20 (+)
//	g3: C (80)
//	links: A 1..50 <-> B 11..60 (sic: B is only 50 long, rows clip)
func fixture(t *testing.T) *layout.Layout {
	t.Helper()
	r := track.New()
	err := r.SetSequences([]track.Sequence{
		{SeqID: "A", BinID: "g1", Length: 100},
		{SeqID: "B", BinID: "g2", Length: 50},
		{SeqID: "C", BinID: "g3", Length: 80},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.AddFeats("genes", []track.Feature{
		{FeatID: "tnpA", SeqID: "A", Start: 10, End: 20, Strand: track.StrandForward},
		{FeatID: "accB", SeqID: "A", Start: 50, End: 60, Strand: track.StrandReverse},
		{FeatID: "tnpA2", SeqID: "B", Start: 10, End: 20, Strand: track.StrandForward},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.AddLinks("synteny", []track.Link{
		{SeqID1: "A", Start1: 1, End1: 50, SeqID2: "B", Start2: 11, End2: 50},
	})
	if err != nil {
		t.Fatal(err)
	}

	l, err := layout.New(r, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func genes(t *testing.T, l *layout.Layout) []layout.FeatRow {
	t.Helper()
	view, err := l.Feats("genes")
	if err != nil {
		t.Fatal(err)
	}
	return view.Rows
}

func TestFlip(t *testing.T) {
	l := fixture(t)

	flipped, err := Flip(l, "A")
	if err != nil {
		t.Fatalf("Flip: %v", err)
	}

	rows := genes(t, flipped)
	if rows[0].X != 80 || rows[0].Xend != 90 {
		t.Errorf("tnpA = %d..%d, want 80..90", rows[0].X, rows[0].Xend)
	}
	if rows[0].Strand != track.StrandReverse {
		t.Errorf("tnpA strand = %v, want - after flip", rows[0].Strand)
	}
	// tnpA2 on B is untouched.
	if rows[2].X != 10 || rows[2].Xend != 20 {
		t.Errorf("tnpA2 = %d..%d, want 10..20", rows[2].X, rows[2].Xend)
	}

	// The input layout is untouched (persistent value semantics).
	if got := genes(t, l)[0]; got.X != 10 {
		t.Errorf("original layout mutated: tnpA.x = %d, want 10", got.X)
	}
}

func TestFlipTwiceRestores(t *testing.T) {
	l := fixture(t)

	once, err := Flip(l, "g1")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Flip(once, "g1")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(l.Seqs(), twice.Seqs()) {
		t.Error("sequence table differs after double flip")
	}
	if !reflect.DeepEqual(genes(t, l), genes(t, twice)) {
		t.Error("projected features differ after double flip")
	}

	v1, err := l.Links("synteny")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := twice.Links("synteny")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v1.Rows, v2.Rows) {
		t.Error("projected links differ after double flip")
	}
}

func TestFlipByBin(t *testing.T) {
	r := track.New()
	err := r.SetSequences([]track.Sequence{
		{SeqID: "a1", BinID: "g1", Length: 10},
		{SeqID: "a2", BinID: "g1", Length: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	l, err := layout.New(r, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}

	flipped, err := Flip(l, "g1")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range flipped.Seqs() {
		if s.Strand != track.StrandReverse {
			t.Errorf("seq %q strand = %v, want - (bin flip hits every member)", s.SeqID, s.Strand)
		}
	}
	// Member order and offsets are preserved; only orientation toggles.
	if got := flipped.Seqs()[1]; got.SeqID != "a2" || got.XOffset != 10 {
		t.Errorf("a2 = offset %d, want 10", got.XOffset)
	}
}

func TestFlipUnknownTarget(t *testing.T) {
	l := fixture(t)
	if _, err := Flip(l, "nope"); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
	if _, err := Flip(l); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("empty target error = %v, want VALIDATION", err)
	}
}

func TestPick(t *testing.T) {
	l := fixture(t)

	picked, err := Pick(l, "g3", "g1", "g2")
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got := picked.Bins(); !reflect.DeepEqual(got, []string{"g3", "g1", "g2"}) {
		t.Errorf("bins = %v, want [g3 g1 g2]", got)
	}

	// y follows the new bin_index.
	for _, s := range picked.Seqs() {
		if s.Y != float64(s.BinIndex) {
			t.Errorf("seq %q y = %v, bin_index = %d", s.SeqID, s.Y, s.BinIndex)
		}
	}

	// Inverse permutation restores the original assignment.
	restored, err := Pick(picked, "g1", "g2", "g3")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l.Seqs(), restored.Seqs()) {
		t.Error("inverse pick does not restore original layout")
	}
}

func TestPickSubsetFilters(t *testing.T) {
	l := fixture(t)

	picked, err := Pick(l, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(picked.Seqs()); got != 1 {
		t.Fatalf("seqs = %d, want 1", got)
	}

	// Features on B and links touching B disappear silently: the subset was
	// requested, so no reference diagnostics are emitted.
	rows := genes(t, picked)
	if len(rows) != 2 {
		t.Errorf("feature rows = %d, want 2 (only A's)", len(rows))
	}
	view, err := picked.Links("synteny")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Rows) != 0 {
		t.Errorf("link rows = %d, want 0", len(view.Rows))
	}
	if diags := picked.Diagnostics(); len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none for an explicit subset", diags)
	}
}

func TestPickErrors(t *testing.T) {
	l := fixture(t)
	if _, err := Pick(l, "ghost"); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("unknown bin error = %v, want VALIDATION", err)
	}
	if _, err := Pick(l, "g1", "g1"); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("duplicate bin error = %v, want VALIDATION", err)
	}
}

func TestFocusSplitsSequence(t *testing.T) {
	l := fixture(t)

	focused, err := Focus(l, FocusOptions{
		Track:      "genes",
		Match:      func(f track.Feature) bool { return f.SeqID == "A" },
		MarginUp:   5,
		MarginDown: 5,
	})
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}

	// Two disjoint targets on A: 10..20 and 50..60, each expanded by 5.
	rows := focused.Seqs()
	if len(rows) != 2 {
		t.Fatalf("seqs = %d, want 2 windows on A", len(rows))
	}
	if rows[0].SeqID != "A:5-25" || rows[0].Start != 4 || rows[0].End != 25 {
		t.Errorf("window1 = %q %d..%d, want A:5-25 4..25", rows[0].SeqID, rows[0].Start, rows[0].End)
	}
	if rows[1].SeqID != "A:45-65" || rows[1].Start != 44 || rows[1].End != 65 {
		t.Errorf("window2 = %q %d..%d, want A:45-65 44..65", rows[1].SeqID, rows[1].Start, rows[1].End)
	}

	// Split rows stay in one bin, concatenated: widths 21 and 21.
	if rows[0].XOffset != 0 || rows[1].XOffset != 21 {
		t.Errorf("offsets = %d, %d, want 0, 21", rows[0].XOffset, rows[1].XOffset)
	}
	if rows[0].ParentID != "A" || rows[1].ParentID != "A" {
		t.Errorf("parents = %q, %q, want A, A", rows[0].ParentID, rows[1].ParentID)
	}

	// tnpA lands on window1: start 10 in window (4..25] projects to 6.
	featRows := genes(t, focused)
	byID := make(map[string]layout.FeatRow)
	for _, fr := range featRows {
		byID[fr.Feature.FeatID] = fr
	}
	if got := byID["tnpA"]; got.SeqID != "A:5-25" || got.X != 6 || got.Xend != 16 {
		t.Errorf("tnpA = %q %d..%d, want A:5-25 6..16", got.SeqID, got.X, got.Xend)
	}
	if got := byID["accB"]; got.SeqID != "A:45-65" || got.X != 27 || got.Xend != 37 {
		t.Errorf("accB = %q %d..%d, want A:45-65 27..37", got.SeqID, got.X, got.Xend)
	}
}

func TestFocusMerge(t *testing.T) {
	// Overlapping targets merge into a single window.
	l := fixture(t)

	focused, err := Focus(l, FocusOptions{
		Track:      "genes",
		Match:      func(f track.Feature) bool { return f.SeqID == "A" },
		MarginUp:   20,
		MarginDown: 20,
	})
	if err != nil {
		t.Fatal(err)
	}

	rows := focused.Seqs()
	if len(rows) != 1 {
		t.Fatalf("seqs = %d, want 1 merged window", len(rows))
	}
	// 10-20 +/-20 -> 1..40 (clamped); 50-60 +/-20 -> 30..80; union 1..80,
	// which is a strict subwindow so the id stays synthetic.
	if rows[0].Start != 0 || rows[0].End != 80 {
		t.Errorf("window = %d..%d, want 0..80", rows[0].Start, rows[0].End)
	}
}

func TestFocusMarginalPolicies(t *testing.T) {
	newLayout := func(t *testing.T) *layout.Layout {
		r := track.New()
		if err := r.SetSequences([]track.Sequence{{SeqID: "A", BinID: "g1", Length: 100}}); err != nil {
			t.Fatal(err)
		}
		_, err := r.AddFeats("genes", []track.Feature{
			{FeatID: "inside", SeqID: "A", Start: 12, End: 18},
			{FeatID: "spanning", SeqID: "A", Start: 5, End: 15},
			{FeatID: "outside", SeqID: "A", Start: 30, End: 40},
		})
		if err != nil {
			t.Fatal(err)
		}
		l, err := layout.New(r, layout.Options{})
		if err != nil {
			t.Fatal(err)
		}
		return l
	}

	window := []Subseq{{SeqID: "A", Start: 10, End: 20}}

	t.Run("Trim", func(t *testing.T) {
		focused, err := Focus(newLayout(t), FocusOptions{Subseqs: window, Marginal: layout.MarginalTrim})
		if err != nil {
			t.Fatal(err)
		}
		rows := genes(t, focused)
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2 (outside dropped for zero overlap)", len(rows))
		}
		w, _ := focused.Seq(rows[0].SeqID)
		for _, fr := range rows {
			if fr.X < w.XOffset || fr.Xend > w.XOffset+w.Width() {
				t.Errorf("%s = %d..%d extends outside window", fr.Feature.FeatID, fr.X, fr.Xend)
			}
		}
	})

	t.Run("Drop", func(t *testing.T) {
		focused, err := Focus(newLayout(t), FocusOptions{Subseqs: window, Marginal: layout.MarginalDrop})
		if err != nil {
			t.Fatal(err)
		}
		rows := genes(t, focused)
		if len(rows) != 1 || rows[0].Feature.FeatID != "inside" {
			t.Errorf("rows = %v, want only 'inside'", rows)
		}
	})

	t.Run("Keep", func(t *testing.T) {
		focused, err := Focus(newLayout(t), FocusOptions{Subseqs: window, Marginal: layout.MarginalKeep})
		if err != nil {
			t.Fatal(err)
		}
		rows := genes(t, focused)
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		// spanning keeps its raw coordinates: start 5 in window origin 9
		// projects below the window start.
		byID := make(map[string]layout.FeatRow)
		for _, fr := range rows {
			byID[fr.Feature.FeatID] = fr
		}
		if got := byID["spanning"]; got.X != -4 || got.Xend != 6 {
			t.Errorf("spanning = %d..%d, want -4..6", got.X, got.Xend)
		}
	})
}

func TestFocusErrors(t *testing.T) {
	l := fixture(t)

	t.Run("NoMatch", func(t *testing.T) {
		_, err := Focus(l, FocusOptions{
			Track: "genes",
			Match: func(track.Feature) bool { return false },
		})
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})

	t.Run("UnknownTrack", func(t *testing.T) {
		_, err := Focus(l, FocusOptions{Track: "ghost", Match: func(track.Feature) bool { return true }})
		if !errors.Is(err, errors.ErrCodeConfiguration) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("UnknownSubseq", func(t *testing.T) {
		_, err := Focus(l, FocusOptions{Subseqs: []Subseq{{SeqID: "ghost", Start: 1, End: 10}}})
		if !errors.Is(err, errors.ErrCodeValidation) {
			t.Errorf("error = %v, want VALIDATION", err)
		}
	})

	t.Run("FailedFocusLeavesInputIntact", func(t *testing.T) {
		before := l.Seqs()
		_, _ = Focus(l, FocusOptions{Track: "genes", Match: func(track.Feature) bool { return false }})
		if !reflect.DeepEqual(before, l.Seqs()) {
			t.Error("failed transform mutated its input")
		}
	})
}

func TestFocusLinkTrack(t *testing.T) {
	l := fixture(t)

	focused, err := Focus(l, FocusOptions{
		Track:     "synteny",
		MatchLink: func(track.Link) bool { return true },
	})
	if err != nil {
		t.Fatalf("Focus on link track: %v", err)
	}

	// Both link sides become targets: A 1..50 and B 11..50.
	parents := make(map[string]bool)
	for _, s := range focused.Seqs() {
		parents[s.ParentID] = true
	}
	if !parents["A"] || !parents["B"] || parents["C"] {
		t.Errorf("focused parents = %v, want A and B only", parents)
	}
}

func TestAddFeats(t *testing.T) {
	l := fixture(t)

	added, err := AddFeats(l, "repeats", []track.Feature{
		{SeqID: "C", Start: 10, End: 30},
	}, nil)
	if err != nil {
		t.Fatalf("AddFeats: %v", err)
	}

	view, err := added.Feats("repeats")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Rows) != 1 || view.Rows[0].X != 10 {
		t.Errorf("rows = %v, want one at x=10", view.Rows)
	}

	// Sequence placement is unchanged.
	if !reflect.DeepEqual(l.Seqs(), added.Seqs()) {
		t.Error("AddFeats changed the sequence layout")
	}
	// The original layout does not know the new track.
	if _, err := l.Feats("repeats"); err == nil {
		t.Error("new track leaked into the input layout")
	}
}

func TestAddLinksAfterFlip(t *testing.T) {
	l := fixture(t)
	flipped, err := Flip(l, "C")
	if err != nil {
		t.Fatal(err)
	}

	added, err := AddLinks(flipped, "extra", []track.Link{
		{SeqID1: "A", Start1: 1, End1: 10, SeqID2: "C", Start2: 1, End2: 10},
	})
	if err != nil {
		t.Fatal(err)
	}

	view, err := added.Links("extra")
	if err != nil {
		t.Fatal(err)
	}
	// Projected against the current (flipped) layout: one-sided flip
	// inverts the new link too.
	if got := view.Rows[0].Orientation; got != layout.OrientInverted {
		t.Errorf("orientation = %v, want inverted against flipped C", got)
	}
}

func TestAddSubfeats(t *testing.T) {
	l := fixture(t)

	t.Run("ForwardParent", func(t *testing.T) {
		added, err := AddSubfeats(l, "genes", "domains", []track.Feature{
			{FeatID: "d1", SeqID: "tnpA", Start: 2, End: 4, Strand: track.StrandForward},
		})
		if err != nil {
			t.Fatalf("AddSubfeats: %v", err)
		}
		view, err := added.Feats("domains")
		if err != nil {
			t.Fatal(err)
		}
		// tnpA spans 10..20 on A, so local 2..4 lifts to 11..13.
		got := view.Rows[0]
		if got.Feature.SeqID != "A" || got.X != 11 || got.Xend != 13 {
			t.Errorf("d1 = %q %d..%d, want A 11..13", got.Feature.SeqID, got.X, got.Xend)
		}
		if got.Feature.ParentID != "tnpA" {
			t.Errorf("parent = %q, want tnpA", got.Feature.ParentID)
		}
	})

	t.Run("ReverseParent", func(t *testing.T) {
		added, err := AddSubfeats(l, "genes", "domains2", []track.Feature{
			{FeatID: "d2", SeqID: "accB", Start: 1, End: 3, Strand: track.StrandForward},
		})
		if err != nil {
			t.Fatal(err)
		}
		view, err := added.Feats("domains2")
		if err != nil {
			t.Fatal(err)
		}
		// accB is minus-strand spanning 50..60: local 1..3 counts from the
		// 60 end, lifting to 58..60 with flipped strand.
		got := view.Rows[0]
		if got.X != 58 || got.Xend != 60 {
			t.Errorf("d2 = %d..%d, want 58..60", got.X, got.Xend)
		}
		if got.Feature.Strand != track.StrandReverse {
			t.Errorf("strand = %v, want -", got.Feature.Strand)
		}
	})

	t.Run("UnknownParentTrack", func(t *testing.T) {
		_, err := AddSubfeats(l, "ghost", "x", nil)
		if !errors.Is(err, errors.ErrCodeConfiguration) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})
}
