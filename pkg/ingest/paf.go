package ingest

import (
	"io"
	"strings"

	"github.com/seqlane/seqlane/pkg/track"
)

// pafColumns is the mandatory column count of a PAF alignment line.
const pafColumns = 12

// ReadPAF reads minimap2-style PAF alignments into a link track. PAF's
// 0-based half-open coordinates are converted to 1-based inclusive; a "-"
// strand alignment becomes a reversed second interval (start2 > end2), which
// is how the link type encodes inversions.
//
// PAF also carries the full length of every named sequence, so the reader
// returns a sequence table as a byproduct, one row per distinct name in
// first-appearance order. Callers that already have a sequence table can
// ignore it.
func ReadPAF(r io.Reader, name string) ([]track.Link, []track.Sequence, error) {
	s := newLineScanner(r, name)

	var (
		links []track.Link
		seqs  []track.Sequence
		seen  = make(map[string]int)
	)
	record := func(id string, length int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = len(seqs)
		seqs = append(seqs, track.Sequence{SeqID: id, Length: length})
	}

	for {
		line, ok := s.next()
		if !ok {
			break
		}

		fields := strings.Split(line, "\t")
		if len(fields) < pafColumns {
			return nil, nil, s.errf("expected at least %d columns, got %d", pafColumns, len(fields))
		}

		var (
			qName = fields[0]
			tName = fields[5]
			err   error
		)
		var qLen, qStart, qEnd, tLen, tStart, tEnd int
		for _, c := range []struct {
			i   int
			col string
			dst *int
		}{
			{1, "query length", &qLen},
			{2, "query start", &qStart},
			{3, "query end", &qEnd},
			{6, "target length", &tLen},
			{7, "target start", &tStart},
			{8, "target end", &tEnd},
		} {
			if *c.dst, err = s.parseInt(fields[c.i], c.col); err != nil {
				return nil, nil, err
			}
		}

		lk := track.Link{
			SeqID1: qName,
			Start1: qStart + 1,
			End1:   qEnd,
			SeqID2: tName,
		}
		switch fields[4] {
		case "+":
			lk.Start2, lk.End2 = tStart+1, tEnd
		case "-":
			lk.Start2, lk.End2 = tEnd, tStart+1
		default:
			return nil, nil, s.errf("invalid strand %q", fields[4])
		}

		lk.Meta = track.Meta{
			"matches": fields[9],
			"aln_len": fields[10],
			"mapq":    fields[11],
		}

		record(qName, qLen)
		record(tName, tLen)
		links = append(links, lk)
	}
	if err := s.err(); err != nil {
		return nil, nil, err
	}
	return links, seqs, nil
}

// ReadPAFFile is the file-path convenience wrapper.
func ReadPAFFile(path string) ([]track.Link, []track.Sequence, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadPAF(f, path)
}
