package ingest

import (
	"io"
	"net/url"
	"strings"

	"github.com/seqlane/seqlane/pkg/track"
)

// gffColumns is the fixed column count of a GFF3 feature line.
const gffColumns = 9

// ReadGFF reads GFF3 feature lines into a feature track. Directives and
// comments are skipped; an embedded ##FASTA section ends the parse. The ID
// and Parent attributes map to feat_id and parent_id; source, type, score,
// phase and the remaining attributes are carried through as row metadata.
func ReadGFF(r io.Reader, name string) ([]track.Feature, error) {
	s := newLineScanner(r, name)

	var rows []track.Feature
	for {
		line, ok := s.nextRaw()
		if !ok {
			break
		}
		if line == "##FASTA" {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != gffColumns {
			return nil, s.errf("expected %d columns, got %d", gffColumns, len(fields))
		}

		f := track.Feature{SeqID: fields[0]}
		var err error
		if f.Start, err = s.parseInt(fields[3], "start"); err != nil {
			return nil, err
		}
		if f.End, err = s.parseInt(fields[4], "end"); err != nil {
			return nil, err
		}
		if f.Strand, err = track.ParseStrand(fields[6]); err != nil {
			return nil, s.errf("invalid strand %q", fields[6])
		}

		f.Meta = track.Meta{
			"source": fields[1],
			"type":   fields[2],
		}
		if fields[5] != "." {
			f.Meta["score"] = fields[5]
		}
		if fields[7] != "." {
			f.Meta["phase"] = fields[7]
		}
		parseGFFAttributes(fields[8], &f)

		rows = append(rows, f)
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// parseGFFAttributes splits the column-nine key=value list. ID and Parent are
// lifted into the feature's identity columns; everything else lands in Meta.
func parseGFFAttributes(attrs string, f *track.Feature) {
	if attrs == "." || attrs == "" {
		return
	}
	for _, pair := range strings.Split(attrs, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		switch key {
		case "ID":
			f.FeatID = value
		case "Parent":
			f.ParentID = value
		default:
			if f.Meta == nil {
				f.Meta = make(track.Meta)
			}
			f.Meta[key] = value
		}
	}
}

// ReadGFFFile is the file-path convenience wrapper.
func ReadGFFFile(path string) ([]track.Feature, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGFF(f, path)
}
