package envelope

import (
	"bufio"
	"bytes"
	"io"

	json "github.com/goccy/go-json"

	"github.com/c360/surfacestream/errors"
)

// MaxRecordSize bounds a single wire record. Matches the platform-wide JSON
// input limit.
const MaxRecordSize = 1024 * 1024

// Decoder turns a newline-delimited record stream into a lazy sequence of
// envelopes. The sequence is finite and not resumable: the first malformed
// record yields a DecodeError carrying the raw record, and every subsequent
// Next call repeats it. Records consumed before the failure stay consumed;
// there is no retroactive rollback.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
	err     error
}

// NewDecoder creates a Decoder reading NDJSON records from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxRecordSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next envelope in the stream. It skips blank records,
// returns io.EOF at the end of the stream, and returns a *DecodeError on the
// first malformed record, after which the decoder is dead.
func (d *Decoder) Next() (*Envelope, error) {
	if d.err != nil {
		return nil, d.err
	}

	for d.scanner.Scan() {
		d.line++
		record := bytes.TrimSpace(d.scanner.Bytes())
		if len(record) == 0 {
			continue
		}

		env, err := parseRecord(record)
		if err != nil {
			d.err = errors.NewDecodeError(record, d.line, err)
			return nil, d.err
		}
		return env, nil
	}

	if err := d.scanner.Err(); err != nil {
		d.err = errors.NewDecodeError(nil, d.line, err)
		return nil, d.err
	}
	d.err = io.EOF
	return nil, io.EOF
}

// Line returns the number of records consumed so far, counting blanks.
func (d *Decoder) Line() int {
	return d.line
}

// ParseRecord parses a single wire record into a validated envelope.
// Used by transports that frame one record per message instead of NDJSON.
func ParseRecord(record []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(record)
	if len(trimmed) == 0 {
		return nil, errors.NewDecodeError(record, 0, errors.ErrEmptyEnvelope)
	}
	env, err := parseRecord(trimmed)
	if err != nil {
		return nil, errors.NewDecodeError(trimmed, 0, err)
	}
	return env, nil
}

func parseRecord(record []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(record, &env); err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeAll drains the stream, returning every envelope decoded before the
// end of the stream or the first failure. On failure the decoded prefix is
// returned alongside the DecodeError so callers can fold what arrived.
func DecodeAll(r io.Reader) ([]*Envelope, error) {
	d := NewDecoder(r)
	var envs []*Envelope
	for {
		env, err := d.Next()
		if err == io.EOF {
			return envs, nil
		}
		if err != nil {
			return envs, err
		}
		envs = append(envs, env)
	}
}
