// Package linedecoder turns an arbitrarily chunked byte stream into text lines.
//
// A Decoder tolerates multi-byte sequences split across chunks and accepts
// "\n", "\r\n" and "\r" as line terminators, including a "\r\n" pair whose
// two bytes arrive in different chunks. Only complete lines are returned by
// Write; End flushes the trailing partial line.
package linedecoder

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnknownEncoding is returned by New for an encoding label that is not
// part of the WHATWG encoding index.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// Decoder splits decoded text into lines. It is not safe for concurrent use.
type Decoder struct {
	transformer transform.Transformer

	// pending holds bytes of an incomplete multi-byte sequence.
	pending []byte

	// remaining holds decoded text that has not been terminated yet.
	remaining string

	scratch []byte
}

// New returns a Decoder for the named encoding. An empty name selects UTF-8.
func New(encodingName string) (*Decoder, error) {
	enc, err := lookup(encodingName)
	if err != nil {
		return nil, err
	}
	return &Decoder{transformer: enc.NewDecoder()}, nil
}

func lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// Write decodes chunk and returns every line completed by it.
func (d *Decoder) Write(chunk []byte) []string {
	value := d.remaining + d.decode(chunk, false)

	var lines []string
	start := 0
	i := 0
	for i < len(value) {
		c := value[i]
		if c == '\n' {
			lines = append(lines, value[start:i])
			i++
			start = i
			continue
		}
		if c == '\r' {
			// A trailing CR may be the first half of a CRLF.
			if i+1 == len(value) {
				break
			}
			lines = append(lines, value[start:i])
			i++
			if value[i] == '\n' {
				i++
			}
			start = i
			continue
		}
		i++
	}

	d.remaining = value[start:]
	return lines
}

// End flushes the decoder and returns the unterminated last line, if any.
// The Decoder must not be used afterwards.
func (d *Decoder) End() (string, bool) {
	value := d.remaining + d.decode(nil, true)
	d.remaining = ""
	if value == "" {
		return "", false
	}
	return strings.TrimSuffix(value, "\r"), true
}

// decode runs the transformer over pending+chunk, keeping an incomplete
// trailing sequence for the next call unless atEOF is set.
func (d *Decoder) decode(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}
	if len(src) == 0 && !atEOF {
		return ""
	}

	if cap(d.scratch) < 4*len(src)+16 {
		d.scratch = make([]byte, 4*len(src)+16)
	}
	dst := d.scratch[:cap(d.scratch)]

	var out strings.Builder
	for {
		nDst, nSrc, err := d.transformer.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				dst = make([]byte, 2*len(dst))
				d.scratch = dst
			}
		case errors.Is(err, transform.ErrShortSrc) && !atEOF:
			d.pending = append([]byte(nil), src...)
			return out.String()
		default:
			// Decoders substitute U+FFFD for malformed input, so this only
			// happens for transformers that refuse it; pass the bytes through.
			out.Write(src)
			return out.String()
		}
	}
}
