package ingest

import (
	"io"
	"strings"

	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/track"
)

// Column names the TSV readers recognize. Any other header column is carried
// through as row metadata.
const (
	colSeqID  = "seq_id"
	colBinID  = "bin_id"
	colLength = "length"
	colFeatID = "feat_id"
	colStart  = "start"
	colEnd    = "end"
	colStrand = "strand"
	colParent = "parent_id"
	colSeqID1 = "seq_id1"
	colStart1 = "start1"
	colEnd1   = "end1"
	colSeqID2 = "seq_id2"
	colStart2 = "start2"
	colEnd2   = "end2"
)

// tsvHeader maps column names to their position in the header row.
type tsvHeader struct {
	pos map[string]int
}

func readHeader(s *lineScanner, required ...string) (*tsvHeader, error) {
	line, ok := s.next()
	if !ok {
		if err := s.err(); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: empty file, expected a header row", s.name)
	}

	h := &tsvHeader{pos: make(map[string]int)}
	for i, col := range strings.Split(line, "\t") {
		col = strings.TrimSpace(col)
		if _, dup := h.pos[col]; dup {
			return nil, s.errf("duplicate column %q", col)
		}
		h.pos[col] = i
	}
	for _, col := range required {
		if _, ok := h.pos[col]; !ok {
			return nil, s.errf("missing required column %q", col)
		}
	}
	return h, nil
}

// row splits one data line and checks it against the header width.
func (h *tsvHeader) row(s *lineScanner, line string) ([]string, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != len(h.pos) {
		return nil, s.errf("expected %d columns, got %d", len(h.pos), len(fields))
	}
	return fields, nil
}

func (h *tsvHeader) get(fields []string, col string) (string, bool) {
	i, ok := h.pos[col]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(fields[i]), true
}

// meta collects every column not named in known into a metadata map.
func (h *tsvHeader) meta(fields []string, known ...string) track.Meta {
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	var m track.Meta
	for col, i := range h.pos {
		if skip[col] || fields[i] == "" {
			continue
		}
		if m == nil {
			m = make(track.Meta)
		}
		m[col] = fields[i]
	}
	return m
}

// ReadSequencesTSV reads a sequence table with header columns seq_id, length
// and optional bin_id. Extra columns become row metadata.
func ReadSequencesTSV(r io.Reader, name string) ([]track.Sequence, error) {
	s := newLineScanner(r, name)
	h, err := readHeader(s, colSeqID, colLength)
	if err != nil {
		return nil, err
	}

	var rows []track.Sequence
	for {
		line, ok := s.next()
		if !ok {
			break
		}
		fields, err := h.row(s, line)
		if err != nil {
			return nil, err
		}

		seqID, _ := h.get(fields, colSeqID)
		lengthStr, _ := h.get(fields, colLength)
		length, err := s.parseInt(lengthStr, colLength)
		if err != nil {
			return nil, err
		}
		binID, _ := h.get(fields, colBinID)

		rows = append(rows, track.Sequence{
			SeqID:  seqID,
			BinID:  binID,
			Length: length,
			Meta:   h.meta(fields, colSeqID, colBinID, colLength),
		})
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadFeatsTSV reads a feature table with header columns seq_id, start, end
// and optional feat_id, strand, parent_id. Extra columns become row metadata.
func ReadFeatsTSV(r io.Reader, name string) ([]track.Feature, error) {
	s := newLineScanner(r, name)
	h, err := readHeader(s, colSeqID, colStart, colEnd)
	if err != nil {
		return nil, err
	}

	var rows []track.Feature
	for {
		line, ok := s.next()
		if !ok {
			break
		}
		fields, err := h.row(s, line)
		if err != nil {
			return nil, err
		}

		f := track.Feature{
			Meta: h.meta(fields, colFeatID, colSeqID, colStart, colEnd, colStrand, colParent),
		}
		f.SeqID, _ = h.get(fields, colSeqID)
		f.FeatID, _ = h.get(fields, colFeatID)
		f.ParentID, _ = h.get(fields, colParent)

		startStr, _ := h.get(fields, colStart)
		if f.Start, err = s.parseInt(startStr, colStart); err != nil {
			return nil, err
		}
		endStr, _ := h.get(fields, colEnd)
		if f.End, err = s.parseInt(endStr, colEnd); err != nil {
			return nil, err
		}
		if strandStr, ok := h.get(fields, colStrand); ok {
			if f.Strand, err = track.ParseStrand(strandStr); err != nil {
				return nil, s.errf("column %s: %s", colStrand, errors.UserMessage(err))
			}
		}

		rows = append(rows, f)
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadLinksTSV reads a link table with header columns seq_id1, start1, end1,
// seq_id2, start2, end2. Inverted alignments are encoded by the caller as
// start2 > end2, exactly as the columns say. Extra columns become metadata.
func ReadLinksTSV(r io.Reader, name string) ([]track.Link, error) {
	s := newLineScanner(r, name)
	h, err := readHeader(s, colSeqID1, colStart1, colEnd1, colSeqID2, colStart2, colEnd2)
	if err != nil {
		return nil, err
	}

	var rows []track.Link
	for {
		line, ok := s.next()
		if !ok {
			break
		}
		fields, err := h.row(s, line)
		if err != nil {
			return nil, err
		}

		lk := track.Link{
			Meta: h.meta(fields, colSeqID1, colStart1, colEnd1, colSeqID2, colStart2, colEnd2),
		}
		lk.SeqID1, _ = h.get(fields, colSeqID1)
		lk.SeqID2, _ = h.get(fields, colSeqID2)

		for _, c := range []struct {
			col string
			dst *int
		}{
			{colStart1, &lk.Start1},
			{colEnd1, &lk.End1},
			{colStart2, &lk.Start2},
			{colEnd2, &lk.End2},
		} {
			str, _ := h.get(fields, c.col)
			if *c.dst, err = s.parseInt(str, c.col); err != nil {
				return nil, err
			}
		}

		rows = append(rows, lk)
	}
	if err := s.err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadSequencesTSVFile is the file-path convenience wrapper.
func ReadSequencesTSVFile(path string) ([]track.Sequence, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSequencesTSV(f, path)
}

// ReadFeatsTSVFile is the file-path convenience wrapper.
func ReadFeatsTSVFile(path string) ([]track.Feature, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFeatsTSV(f, path)
}

// ReadLinksTSVFile is the file-path convenience wrapper.
func ReadLinksTSVFile(path string) ([]track.Link, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLinksTSV(f, path)
}
