package track

import (
	"testing"

	"github.com/seqlane/seqlane/pkg/errors"
)

func TestSetSequences(t *testing.T) {
	tests := []struct {
		name     string
		rows     []Sequence
		wantErr  errors.Code
		wantBins []string
	}{
		{
			name: "Valid",
			rows: []Sequence{
				{SeqID: "chr1", BinID: "genomeA", Length: 100},
				{SeqID: "chr2", BinID: "genomeA", Length: 50},
			},
		},
		{
			name:     "BinDefaultsToSeqID",
			rows:     []Sequence{{SeqID: "chr1", Length: 100}},
			wantBins: []string{"chr1"},
		},
		{
			name: "DuplicateSeqID",
			rows: []Sequence{
				{SeqID: "chr1", BinID: "a", Length: 100},
				{SeqID: "chr1", BinID: "b", Length: 100},
			},
			wantErr: errors.ErrCodeConfiguration,
		},
		{
			name:    "NegativeLength",
			rows:    []Sequence{{SeqID: "chr1", Length: -1}},
			wantErr: errors.ErrCodeConfiguration,
		},
		{
			name:    "EmptySeqID",
			rows:    []Sequence{{SeqID: "", Length: 10}},
			wantErr: errors.ErrCodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			err := r.SetSequences(tt.rows)

			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want code %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetSequences: %v", err)
			}

			if got := len(r.Sequences()); got != len(tt.rows) {
				t.Errorf("sequences = %d, want %d", got, len(tt.rows))
			}
			for i, want := range tt.wantBins {
				if got := r.Sequences()[i].BinID; got != want {
					t.Errorf("bin[%d] = %q, want %q", i, got, want)
				}
			}
		})
	}
}

func TestAddFeatsNaming(t *testing.T) {
	r := New()

	first, err := r.AddFeats("", []Feature{{SeqID: "chr1", Start: 1, End: 10}})
	if err != nil {
		t.Fatalf("AddFeats: %v", err)
	}
	if first.ID != DefaultFeatsTrack {
		t.Errorf("first track = %q, want %q", first.ID, DefaultFeatsTrack)
	}

	second, err := r.AddFeats("", []Feature{{SeqID: "chr1", Start: 1, End: 10}})
	if err != nil {
		t.Fatalf("AddFeats: %v", err)
	}
	if second.ID == first.ID {
		t.Errorf("fallback name %q collides with first track", second.ID)
	}

	genes, err := r.AddGenes([]Feature{{SeqID: "chr1", Start: 1, End: 10}})
	if err != nil {
		t.Fatalf("AddGenes: %v", err)
	}
	if genes.ID != DefaultGenesTrack {
		t.Errorf("genes track = %q, want %q", genes.ID, DefaultGenesTrack)
	}

	if _, err := r.AddFeats("genes", nil); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("name collision error = %v, want CONFIGURATION", err)
	}
}

func TestAddFeatsAutoID(t *testing.T) {
	r := New()
	tr, err := r.AddFeats("genes", []Feature{
		{SeqID: "chr1", Start: 1, End: 10},
		{FeatID: "named", SeqID: "chr1", Start: 5, End: 8},
		{SeqID: "chr1", Start: 20, End: 30},
	})
	if err != nil {
		t.Fatalf("AddFeats: %v", err)
	}

	want := []string{"genes_1", "named", "genes_3"}
	for i, w := range want {
		if got := tr.Rows[i].FeatID; got != w {
			t.Errorf("feat_id[%d] = %q, want %q", i, got, w)
		}
	}
}

func TestAddFeatsValidation(t *testing.T) {
	tests := []struct {
		name string
		row  Feature
	}{
		{"MissingSeqID", Feature{Start: 1, End: 10}},
		{"StartAfterEnd", Feature{SeqID: "chr1", Start: 10, End: 5}},
		{"ZeroStart", Feature{SeqID: "chr1", Start: 0, End: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			if _, err := r.AddFeats("t", []Feature{tt.row}); !errors.Is(err, errors.ErrCodeConfiguration) {
				t.Errorf("error = %v, want CONFIGURATION", err)
			}
		})
	}
}

func TestAddLinks(t *testing.T) {
	r := New()

	tr, err := r.AddLinks("", []Link{
		{SeqID1: "a", Start1: 1, End1: 50, SeqID2: "b", Start2: 60, End2: 11},
	})
	if err != nil {
		t.Fatalf("AddLinks: %v", err)
	}
	if tr.ID != DefaultLinksTrack {
		t.Errorf("track = %q, want %q", tr.ID, DefaultLinksTrack)
	}
	if !tr.Rows[0].Reversed() {
		t.Error("link with start2 > end2 should report Reversed")
	}

	// Side one may not be reversed.
	_, err = r.AddLinks("bad", []Link{
		{SeqID1: "a", Start1: 50, End1: 1, SeqID2: "b", Start2: 1, End2: 10},
	})
	if !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("reversed side one error = %v, want CONFIGURATION", err)
	}
}

func TestTrackLookup(t *testing.T) {
	r := New()
	if _, err := r.AddFeats("genes", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Feats("genes"); err != nil {
		t.Errorf("Feats(genes): %v", err)
	}
	if _, err := r.Feats("nope"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("unknown track error = %v, want CONFIGURATION", err)
	}
	if _, err := r.Links("genes"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("feature track as links error = %v, want CONFIGURATION", err)
	}
}

func TestRegistryClone(t *testing.T) {
	r := New()
	if err := r.SetSequences([]Sequence{{SeqID: "chr1", Length: 100}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddFeats("genes", nil); err != nil {
		t.Fatal(err)
	}

	clone := r.Clone()
	if _, err := clone.AddFeats("extra", nil); err != nil {
		t.Fatal(err)
	}

	if len(r.FeatTracks()) != 1 {
		t.Errorf("original tracks = %d, want 1 after clone mutation", len(r.FeatTracks()))
	}
	if len(clone.FeatTracks()) != 2 {
		t.Errorf("clone tracks = %d, want 2", len(clone.FeatTracks()))
	}
}

func TestParseStrand(t *testing.T) {
	tests := []struct {
		in      string
		want    Strand
		wantErr bool
	}{
		{"+", StrandForward, false},
		{"-", StrandReverse, false},
		{".", StrandUnknown, false},
		{"", StrandUnknown, false},
		{"x", StrandUnknown, true},
	}

	for _, tt := range tests {
		got, err := ParseStrand(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStrand(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStrand(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}

	if StrandForward.Flip() != StrandReverse || StrandUnknown.Flip() != StrandUnknown {
		t.Error("Flip misbehaves")
	}
}
