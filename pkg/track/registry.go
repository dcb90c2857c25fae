// Package track stores the named, typed input tables of a layout: one
// sequence table plus any number of feature and link tracks.
//
// The registry validates required columns at the ingestion boundary and
// assigns stable track identifiers, so that everything downstream (layout,
// projection, export) can assume well-formed rows. Unrecognized columns ride
// along in each row's Meta map.
package track

import (
	"fmt"
	"slices"

	"github.com/seqlane/seqlane/pkg/errors"
)

// Default track names assigned when the caller does not provide one.
const (
	DefaultFeatsTrack = "feats"
	DefaultGenesTrack = "genes"
	DefaultLinksTrack = "links"
)

// FeatTrack is a named collection of feature rows.
type FeatTrack struct {
	ID   string
	Rows []Feature
}

// LinkTrack is a named collection of link rows.
type LinkTrack struct {
	ID   string
	Rows []Link
}

// Registry holds the input tables of one layout. The zero value is not
// usable; use New.
//
// Registries are effectively append-only: rows are never modified after
// ingestion. Transform operations that need a different table set (AddFeats
// on an existing layout) work on a Clone.
type Registry struct {
	seqs     []Sequence
	seqIndex map[string]int

	feats     []*FeatTrack
	featIndex map[string]*FeatTrack

	links     []*LinkTrack
	linkIndex map[string]*LinkTrack

	autoTrack int // counter for unnamed-track fallback names
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		seqIndex:  make(map[string]int),
		featIndex: make(map[string]*FeatTrack),
		linkIndex: make(map[string]*LinkTrack),
	}
}

// SetSequences installs the sequence table, replacing any previous one.
// BinID defaults to SeqID per row. Returns a CONFIGURATION error for invalid
// rows or duplicate identifiers.
//
// SeqID must be unique across all bins, not just within one: features and
// links reference sequences by seq_id alone, so a duplicate would be
// unresolvable at projection time.
func (r *Registry) SetSequences(rows []Sequence) error {
	seqs := make([]Sequence, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, s := range rows {
		if s.BinID == "" {
			s.BinID = s.SeqID
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := index[s.SeqID]; dup {
			return errors.New(errors.ErrCodeConfiguration, "duplicate seq_id %q", s.SeqID)
		}
		index[s.SeqID] = len(seqs)
		seqs = append(seqs, s)
	}

	r.seqs = seqs
	r.seqIndex = index
	return nil
}

// Sequences returns a copy of the sequence table in input order.
func (r *Registry) Sequences() []Sequence { return slices.Clone(r.seqs) }

// HasSequences reports whether a sequence table has been installed.
func (r *Registry) HasSequences() bool { return len(r.seqs) > 0 }

// Sequence returns the sequence row for the given seq_id.
func (r *Registry) Sequence(seqID string) (Sequence, bool) {
	i, ok := r.seqIndex[seqID]
	if !ok {
		return Sequence{}, false
	}
	return r.seqs[i], true
}

// AddFeats registers a feature track. An empty id gets the default name
// "feats" if unused, otherwise an incrementing fallback ("track2", ...).
// Missing feat_ids are filled in as "<track>_<row>". Returns a CONFIGURATION
// error on invalid rows or a track name collision.
func (r *Registry) AddFeats(id string, rows []Feature) (*FeatTrack, error) {
	id, err := r.trackName(id, DefaultFeatsTrack)
	if err != nil {
		return nil, err
	}

	t := &FeatTrack{ID: id, Rows: make([]Feature, 0, len(rows))}
	for i, f := range rows {
		if err := f.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "track %q row %d", id, i+1)
		}
		if f.FeatID == "" {
			f.FeatID = fmt.Sprintf("%s_%d", id, i+1)
		}
		t.Rows = append(t.Rows, f)
	}

	r.feats = append(r.feats, t)
	r.featIndex[id] = t
	return t, nil
}

// AddGenes registers a feature track under the conventional "genes" name.
// It is the genes-specific convenience entry point: same validation as
// AddFeats, fixed default name.
func (r *Registry) AddGenes(rows []Feature) (*FeatTrack, error) {
	return r.AddFeats(DefaultGenesTrack, rows)
}

// AddLinks registers a link track. Naming follows the same rules as
// AddFeats with the default name "links".
func (r *Registry) AddLinks(id string, rows []Link) (*LinkTrack, error) {
	id, err := r.trackName(id, DefaultLinksTrack)
	if err != nil {
		return nil, err
	}

	t := &LinkTrack{ID: id, Rows: make([]Link, 0, len(rows))}
	for i, l := range rows {
		if err := l.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "track %q row %d", id, i+1)
		}
		t.Rows = append(t.Rows, l)
	}

	r.links = append(r.links, t)
	r.linkIndex[id] = t
	return t, nil
}

// Feats returns the feature track with the given id.
// Returns a CONFIGURATION error if no such track exists.
func (r *Registry) Feats(id string) (*FeatTrack, error) {
	t, ok := r.featIndex[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown feature track %q", id)
	}
	return t, nil
}

// Links returns the link track with the given id.
// Returns a CONFIGURATION error if no such track exists.
func (r *Registry) Links(id string) (*LinkTrack, error) {
	t, ok := r.linkIndex[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeConfiguration, "unknown link track %q", id)
	}
	return t, nil
}

// FeatTracks returns all feature tracks in registration order.
func (r *Registry) FeatTracks() []*FeatTrack { return slices.Clone(r.feats) }

// LinkTracks returns all link tracks in registration order.
func (r *Registry) LinkTracks() []*LinkTrack { return slices.Clone(r.links) }

// TrackIDs returns the names of all tracks, features first, in
// registration order.
func (r *Registry) TrackIDs() []string {
	ids := make([]string, 0, len(r.feats)+len(r.links))
	for _, t := range r.feats {
		ids = append(ids, t.ID)
	}
	for _, t := range r.links {
		ids = append(ids, t.ID)
	}
	return ids
}

// Clone returns a registry sharing the same immutable rows but with
// independent track lists, so tracks can be added without affecting the
// original. Used by transforms that produce a new layout state.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		seqs:      r.seqs,
		seqIndex:  r.seqIndex,
		feats:     slices.Clone(r.feats),
		featIndex: make(map[string]*FeatTrack, len(r.featIndex)),
		links:     slices.Clone(r.links),
		linkIndex: make(map[string]*LinkTrack, len(r.linkIndex)),
		autoTrack: r.autoTrack,
	}
	for id, t := range r.featIndex {
		out.featIndex[id] = t
	}
	for id, t := range r.linkIndex {
		out.linkIndex[id] = t
	}
	return out
}

// trackName resolves the track name for a new track: the explicit id when
// given, the role default when free, otherwise an incrementing fallback.
// Explicit names that collide are an error; default names fall through to
// the fallback silently.
func (r *Registry) trackName(id, fallback string) (string, error) {
	if id != "" {
		if err := errors.ValidateTrackName(id); err != nil {
			return "", err
		}
		if r.nameTaken(id) {
			return "", errors.New(errors.ErrCodeConfiguration, "track %q already exists", id)
		}
		return id, nil
	}

	if !r.nameTaken(fallback) {
		return fallback, nil
	}
	for {
		r.autoTrack++
		candidate := fmt.Sprintf("track%d", r.autoTrack+1)
		if !r.nameTaken(candidate) {
			return candidate, nil
		}
	}
}

func (r *Registry) nameTaken(id string) bool {
	if _, ok := r.featIndex[id]; ok {
		return true
	}
	_, ok := r.linkIndex[id]
	return ok
}
