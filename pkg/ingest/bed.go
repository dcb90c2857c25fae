package ingest

import (
	"io"
	"strings"

	"github.com/seqlane/seqlane/pkg/track"
)

// ReadBED reads BED3 or wider lines into a feature track. BED's 0-based
// half-open intervals are converted to the 1-based inclusive coordinates the
// track types use. Column four becomes feat_id, column six the strand; score
// and any further columns are carried through as metadata.
//
// Both tab and space separated files are accepted, as are browser/track
// header lines.
func ReadBED(r io.Reader, name string) ([]track.Feature, error) {
	s := newLineScanner(r, name)

	var rows []track.Feature
	for {
		line, ok := s.next()
		if !ok {
			break
		}
		if strings.HasPrefix(line, "browser") || strings.HasPrefix(line, "track") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, s.errf("expected at least 3 columns, got %d", len(fields))
		}

		f := track.Feature{SeqID: fields[0]}
		chromStart, err := s.parseInt(fields[1], "chromStart")
		if err != nil {
			return nil, err
		}
		chromEnd, err := s.parseInt(fields[2], "chromEnd")
		if err != nil {
			return nil, err
		}
		f.Start, f.End = chromStart+1, chromEnd

		if len(fields) > 3 && fields[3] != "." {
			f.FeatID = fields[3]
		}
		if len(fields) > 4 && fields[4] != "." {
			f.Meta = track.Meta{"score": fields[4]}
		}
		if len(fields) > 5 {
			if f.Strand, err = track.ParseStrand(fields[5]); err != nil {
				return nil, s.errf("invalid strand %q", fields[5])
			}
		}
		if len(fields) > 6 {
			if f.Meta == nil {
				f.Meta = make(track.Meta)
			}
			f.Meta["extra"] = strings.Join(fields[6:], "\t")
		}

		rows = append(rows, f)
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadBEDFile is the file-path convenience wrapper.
func ReadBEDFile(path string) ([]track.Feature, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBED(f, path)
}
