// Package ingest reads tabular genomics files into track records.
//
// The readers are deliberately thin: they split lines, type the required
// columns, and hand everything else through as row metadata. Validation of
// the resulting tables (coordinate sanity, id uniqueness) happens in the
// track registry, not here; ingest only rejects lines it cannot parse.
//
// Supported formats:
//   - generic TSV with a header row (sequences, features, links)
//   - GFF3 (features)
//   - BED (features)
//   - PAF (links, strand-aware; sequence lengths as a byproduct)
//
// Parse failures return INVALID_FORMAT errors carrying the source name and
// line number.
package ingest

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/seqlane/seqlane/pkg/errors"
)

// lineScanner walks a file line by line, tracking position for error
// reporting and skipping blank and comment lines.
type lineScanner struct {
	name string
	sc   *bufio.Scanner
	line int
}

func newLineScanner(r io.Reader, name string) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &lineScanner{name: name, sc: sc}
}

// next returns the next non-blank, non-comment line. ok is false at EOF.
func (s *lineScanner) next() (text string, ok bool) {
	for s.sc.Scan() {
		s.line++
		t := strings.TrimRight(s.sc.Text(), "\r\n")
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		return t, true
	}
	return "", false
}

// nextRaw returns the next line without comment filtering, for formats that
// assign meaning to their comment lines.
func (s *lineScanner) nextRaw() (text string, ok bool) {
	if !s.sc.Scan() {
		return "", false
	}
	s.line++
	return strings.TrimRight(s.sc.Text(), "\r\n"), true
}

// err wraps the scanner's underlying read error, if any.
func (s *lineScanner) err() error {
	if err := s.sc.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "read %s", s.name)
	}
	return nil
}

// errf builds an INVALID_FORMAT error pinned to the current line.
func (s *lineScanner) errf(format string, args ...any) error {
	e := errors.New(errors.ErrCodeInvalidFormat, format, args...)
	e.Message = s.name + ":" + strconv.Itoa(s.line) + ": " + e.Message
	return e
}

// parseInt types one column, reporting the column name on failure.
func (s *lineScanner) parseInt(field, col string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, s.errf("column %s: invalid integer %q", col, field)
	}
	return v, nil
}

// openFile wraps os.Open with the coded not-found error the CLI expects.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	return f, nil
}
