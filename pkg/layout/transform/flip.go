package transform

import (
	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/layout"
)

// Flip toggles the display orientation of the targeted sequences and returns
// the re-laid-out state. Each target may be a bin id (flipping every member
// sequence) or a single sequence id. Offsets within affected bins and all
// dependent feature/link coordinates are recomputed.
//
// Returns a VALIDATION error if a target matches neither a bin nor a
// sequence. Flipping the same target twice restores the original coordinates
// exactly.
func Flip(l *layout.Layout, targets ...string) (*layout.Layout, error) {
	if len(targets) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "flip requires at least one bin or sequence id")
	}

	rows := l.SeqRows()

	for _, target := range targets {
		matched := false
		for i := range rows {
			if rows[i].BinID == target || rows[i].ID == target {
				rows[i].Reverse = !rows[i].Reverse
				matched = true
			}
		}
		if !matched {
			return nil, errors.New(errors.ErrCodeValidation, "flip target %q matches no bin or sequence", target)
		}
	}

	return l.Derive(l.Registry(), rows, l.Options())
}
