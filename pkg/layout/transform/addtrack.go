package transform

import (
	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/track"
)

// AddFeats merges a new feature track into the layout's registry and
// projects it against the current sequence layout. The sequence placement is
// unchanged; only the new view is added (existing views re-derive to the
// same coordinates). An optional coordinate transform is applied to the
// track's rows before projection.
//
// An empty id gets a default name per the registry's naming rules.
func AddFeats(l *layout.Layout, id string, rows []track.Feature, ct layout.CoordTransform) (*layout.Layout, error) {
	reg := l.Registry().Clone()
	t, err := reg.AddFeats(id, rows)
	if err != nil {
		return nil, err
	}

	opts := l.Options()
	if ct != nil {
		transforms := make(map[string]layout.CoordTransform, len(opts.Transforms)+1)
		for k, v := range opts.Transforms {
			transforms[k] = v
		}
		transforms[t.ID] = ct
		opts.Transforms = transforms
	}

	return l.Derive(reg, l.SeqRows(), opts)
}

// AddLinks merges a new link track into the layout's registry and projects
// it against the current sequence layout.
func AddLinks(l *layout.Layout, id string, rows []track.Link) (*layout.Layout, error) {
	reg := l.Registry().Clone()
	if _, err := reg.AddLinks(id, rows); err != nil {
		return nil, err
	}
	return l.Derive(reg, l.SeqRows(), l.Options())
}

// AddSubfeats merges a track of sub-features whose coordinates are local to
// parent features of an existing track (e.g. protein domains on genes). Each
// row's SeqID must name a parent feat_id; coordinates are lifted into the
// parent's sequence space, strand-aware: sub-features of a minus-strand
// parent are mirrored within it.
//
// Returns a CONFIGURATION error for an unknown parent track and, in strict
// mode, a REFERENCE error for an unknown parent feature; in lenient mode
// such rows are dropped during projection like any unresolved reference.
func AddSubfeats(l *layout.Layout, parentTrack, id string, rows []track.Feature) (*layout.Layout, error) {
	reg := l.Registry().Clone()
	pt, err := reg.Feats(parentTrack)
	if err != nil {
		return nil, err
	}

	parents := make(map[string]track.Feature, len(pt.Rows))
	for _, p := range pt.Rows {
		parents[p.FeatID] = p
	}

	lifted := make([]track.Feature, 0, len(rows))
	for _, f := range rows {
		p, ok := parents[f.SeqID]
		if !ok {
			if l.Options().Strict {
				return nil, errors.New(errors.ErrCodeReference,
					"subfeat %q references unknown parent feature %q", f.FeatID, f.SeqID)
			}
			// Leave the row pointing at the parent feat id; projection
			// reports it as an unresolved reference.
			lifted = append(lifted, f)
			continue
		}

		start, end := f.Start, f.End
		if p.Strand == track.StrandReverse {
			start, end = p.End-end+1, p.End-start+1
			f.Strand = f.Strand.Flip()
		} else {
			start, end = p.Start+start-1, p.Start+end-1
		}
		f.ParentID = p.FeatID
		f.SeqID = p.SeqID
		f.Start, f.End = start, end
		lifted = append(lifted, f)
	}

	if _, err := reg.AddFeats(id, lifted); err != nil {
		return nil, err
	}
	return l.Derive(reg, l.SeqRows(), l.Options())
}
