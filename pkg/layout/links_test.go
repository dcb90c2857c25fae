package layout

import (
	"testing"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// linkedRegistry builds two single-sequence bins, A (100) and C (80),
// joined by one link track.
func linkedRegistry(t *testing.T, links []track.Link) *track.Registry {
	t.Helper()
	r := track.New()
	err := r.SetSequences([]track.Sequence{
		{SeqID: "A", BinID: "g1", Length: 100},
		{SeqID: "C", BinID: "g2", Length: 80},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddLinks("synteny", links); err != nil {
		t.Fatal(err)
	}
	return r
}

func flipSeq(t *testing.T, l *Layout, id string) *Layout {
	t.Helper()
	rows := l.SeqRows()
	for i := range rows {
		if rows[i].ID == id {
			rows[i].Reverse = !rows[i].Reverse
		}
	}
	out, err := l.Derive(l.Registry(), rows, l.Options())
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func firstLink(t *testing.T, l *Layout) LinkRow {
	t.Helper()
	view, err := l.Links("synteny")
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Rows) != 1 {
		t.Fatalf("link rows = %d, want 1", len(view.Rows))
	}
	return view.Rows[0]
}

func TestProjectLinksColinear(t *testing.T) {
	r := linkedRegistry(t, []track.Link{
		{SeqID1: "A", Start1: 1, End1: 50, SeqID2: "C", Start2: 11, End2: 60},
	})
	l, err := New(r, Options{})
	if err != nil {
		t.Fatal(err)
	}

	got := firstLink(t, l)
	if got.X != 1 || got.Xend != 50 {
		t.Errorf("side1 = %d..%d, want 1..50", got.X, got.Xend)
	}
	if got.X2 != 11 || got.Xend2 != 60 {
		t.Errorf("side2 = %d..%d, want 11..60", got.X2, got.Xend2)
	}
	if got.Y != 0 || got.Y2 != 1 {
		t.Errorf("y, y2 = %v, %v, want 0, 1", got.Y, got.Y2)
	}
	if got.Orientation != OrientColinear {
		t.Errorf("orientation = %v, want colinear", got.Orientation)
	}
}

func TestProjectLinksFlipInverts(t *testing.T) {
	r := linkedRegistry(t, []track.Link{
		{SeqID1: "A", Start1: 1, End1: 50, SeqID2: "C", Start2: 11, End2: 60},
	})
	l, err := New(r, Options{})
	if err != nil {
		t.Fatal(err)
	}

	flipped := flipSeq(t, l, "C")
	got := firstLink(t, flipped)

	// C is mirrored: position p projects to 80 - p.
	if got.X2 != 69 || got.Xend2 != 20 {
		t.Errorf("side2 = %d..%d, want 69..20", got.X2, got.Xend2)
	}
	if got.Orientation != OrientInverted {
		t.Errorf("orientation = %v, want inverted after one-sided flip", got.Orientation)
	}

	// Flipping back restores colinearity.
	restored := flipSeq(t, flipped, "C")
	if got := firstLink(t, restored); got.Orientation != OrientColinear {
		t.Errorf("orientation = %v, want colinear after double flip", got.Orientation)
	}
}

func TestProjectLinksReversedInput(t *testing.T) {
	// start2 > end2 encodes an inversion in the input coordinates.
	r := linkedRegistry(t, []track.Link{
		{SeqID1: "A", Start1: 1, End1: 50, SeqID2: "C", Start2: 60, End2: 11},
	})
	l, err := New(r, Options{})
	if err != nil {
		t.Fatal(err)
	}

	got := firstLink(t, l)
	if got.X2 != 60 || got.Xend2 != 11 {
		t.Errorf("side2 = %d..%d, want 60..11", got.X2, got.Xend2)
	}
	if got.Orientation != OrientInverted {
		t.Errorf("orientation = %v, want inverted", got.Orientation)
	}

	// Flipping the reversed side straightens the ribbon.
	flipped := flipSeq(t, l, "C")
	if got := firstLink(t, flipped); got.Orientation != OrientColinear {
		t.Errorf("orientation = %v, want colinear after flip", got.Orientation)
	}
}

func TestProjectLinksUnresolved(t *testing.T) {
	links := []track.Link{
		{SeqID1: "A", Start1: 1, End1: 10, SeqID2: "ghost", Start2: 1, End2: 10},
	}

	t.Run("Lenient", func(t *testing.T) {
		l, err := New(linkedRegistry(t, links), Options{})
		if err != nil {
			t.Fatal(err)
		}
		view, err := l.Links("synteny")
		if err != nil {
			t.Fatal(err)
		}
		if len(view.Rows) != 0 {
			t.Errorf("rows = %d, want 0", len(view.Rows))
		}
		diags := l.Diagnostics()
		if len(diags) != 1 || diags[0].Dropped != 1 {
			t.Errorf("diagnostics = %+v, want one drop", diags)
		}
	})

	t.Run("Strict", func(t *testing.T) {
		_, err := New(linkedRegistry(t, links), Options{Strict: true})
		if !errors.Is(err, errors.ErrCodeReference) {
			t.Errorf("error = %v, want REFERENCE", err)
		}
	})
}

func TestOrientationString(t *testing.T) {
	if OrientColinear.String() != "colinear" || OrientInverted.String() != "inverted" {
		t.Error("orientation strings wrong")
	}
}
