package bodyfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"datatime/internal/timeline"
)

// Reader splits lines of a delimited body file into Rows. Blank lines are
// skipped.
type Reader struct {
	sep  string
	br   *bufio.Reader
	csvr *csv.Reader // set when a qualifier is configured
	line int
}

var _ timeline.RowSource = (*Reader)(nil)

// NewReader creates a Reader. sep must be a single character. qualifier is
// either "" (fields are never quoted) or `"`.
func NewReader(r io.Reader, sep, qualifier string) (*Reader, error) {
	if utf8.RuneCountInString(sep) != 1 {
		return nil, fmt.Errorf("field separator must be a single character, got %q", sep)
	}
	rd := &Reader{sep: sep}

	switch qualifier {
	case "":
		rd.br = bufio.NewReaderSize(r, 64*1024)
	case `"`:
		comma, _ := utf8.DecodeRuneInString(sep)
		if comma == '"' {
			return nil, fmt.Errorf("field separator and qualifier must differ")
		}
		c := csv.NewReader(r)
		c.Comma = comma
		c.FieldsPerRecord = -1
		c.LazyQuotes = true
		c.ReuseRecord = false
		rd.csvr = c
	default:
		return nil, fmt.Errorf("unsupported field qualifier %q (only '\"' is supported)", qualifier)
	}
	return rd, nil
}

// Next returns the next row, or io.EOF when the input is drained. Rows that
// cannot be decoded are reported wrapped in timeline.ErrMalformedRow.
func (rd *Reader) Next() (timeline.Record, error) {
	if rd.csvr != nil {
		return rd.nextQualified()
	}
	for {
		line, err := rd.br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" && err != nil {
			return nil, io.EOF
		}
		rd.line++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err != nil {
				return nil, io.EOF
			}
			continue
		}
		return &Row{fields: strings.Split(line, rd.sep), raw: line, line: rd.line}, nil
	}
}

func (rd *Reader) nextQualified() (timeline.Record, error) {
	fields, err := rd.csvr.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: line %d: %v", timeline.ErrMalformedRow, perr.Line, perr.Err)
		}
		return nil, err
	}
	// Quoting is not preserved; raw is rebuilt from the decoded fields.
	line, _ := rd.csvr.FieldPos(0)
	return &Row{fields: fields, raw: strings.Join(fields, rd.sep), line: line}, nil
}
