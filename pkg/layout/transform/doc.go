// Package transform implements the re-arrangement operations on a layout:
// flipping sequence orientation, reordering or subsetting bins, and focusing
// on sub-regions of interest.
//
// Every operation is all-or-nothing: it derives a new, fully consistent
// [layout.Layout] (with all feature and link projections recomputed) or
// returns an error, leaving the input layout untouched. Chains compose
// naturally:
//
//	l, err := layout.New(reg, layout.Options{})
//	l, err = transform.Flip(l, "genomeB")
//	l, err = transform.Pick(l, "genomeB", "genomeA")
//	l, err = transform.Focus(l, transform.FocusOptions{
//	    Track:      "genes",
//	    Match:      func(f track.Feature) bool { return f.Meta["name"] == "tnpA" },
//	    MarginUp:   2000,
//	    MarginDown: 2000,
//	})
package transform
