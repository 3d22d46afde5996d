package deck

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// MaxLineBytes is the default longest accepted JSONL line.
const MaxLineBytes = 16 << 20

// Record is the result of decoding one JSONL line. Exactly one of Deck and
// Err is meaningful.
type Record struct {
	Line int
	Deck Deck
	Err  error
}

// RecordError classifies why a line could not become a deck.
type RecordError struct {
	Reason string // short aggregatable category
	Detail string
}

func (e *RecordError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

const (
	ReasonMalformed = "malformed json"
	ReasonInvalid   = "invalid deck"
	ReasonNoCards   = "no counted cards"
	ReasonTooLong   = "line too long"
)

var validate = validator.New()

// Reader decodes deck JSONL one record at a time. Blank lines are skipped.
// A line longer than the limit is reported as a skipped record and the
// reader resumes after its newline.
type Reader struct {
	br    *bufio.Reader
	limit int
	buf   []byte
	line  int
}

func NewReader(r io.Reader) *Reader {
	return NewReaderSize(r, MaxLineBytes)
}

// NewReaderSize is NewReader with a custom line limit in bytes.
func NewReaderSize(r io.Reader, limit int) *Reader {
	if limit <= 0 {
		limit = MaxLineBytes
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), limit: limit}
}

// Next returns the next record. It returns io.EOF when the input is
// exhausted and any other error only for I/O failures; per-line decode
// problems are reported through Record.Err.
func (r *Reader) Next() (Record, error) {
	for {
		raw, tooLong, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		if err != nil {
			return Record{}, fmt.Errorf("reading line %d: %w", r.line+1, err)
		}
		r.line++
		if tooLong {
			return Record{Line: r.line, Err: &RecordError{
				Reason: ReasonTooLong,
				Detail: fmt.Sprintf("exceeds %d bytes", r.limit),
			}}, nil
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		return Record{Line: r.line}.decode(raw), nil
	}
}

// readLine returns the next line including its terminator. Once a line
// passes the limit its bytes are discarded up to the newline and tooLong is
// set. The returned slice is only valid until the next call.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	r.buf = r.buf[:0]
	read := 0
	for {
		chunk, err := r.br.ReadSlice('\n')
		read += len(chunk)
		if read > r.limit+1 {
			tooLong = true
			r.buf = r.buf[:0]
		} else if !tooLong {
			r.buf = append(r.buf, chunk...)
		}
		switch {
		case err == nil:
			return r.buf, tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return nil, false, io.EOF
			}
			return r.buf, tooLong, nil
		default:
			return nil, false, err
		}
	}
}

func (rec Record) decode(raw []byte) Record {
	var d Deck
	if err := json.Unmarshal(raw, &d); err != nil {
		rec.Err = &RecordError{Reason: ReasonMalformed, Detail: err.Error()}
		return rec
	}
	if err := Validate(d); err != nil {
		rec.Err = err
		return rec
	}
	d.ID = strings.TrimSpace(d.ID)
	d.Game = strings.ToLower(strings.TrimSpace(d.Game))
	rec.Deck = d
	return rec
}

// Validate checks field-level constraints on a decoded deck.
func Validate(d Deck) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &RecordError{
			Reason: ReasonInvalid,
			Detail: fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()),
		}
	}
	return &RecordError{Reason: ReasonInvalid, Detail: err.Error()}
}

// ReasonOf returns the aggregatable category of a record error.
func ReasonOf(err error) string {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}

// ReadAll decodes every record and calls fn for each in input order. It
// stops early if fn returns an error.
func ReadAll(r io.Reader, fn func(Record) error) error {
	return NewReader(r).ForEach(fn)
}

// ForEach calls fn for every remaining record.
func (r *Reader) ForEach(fn func(Record) error) error {
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
