package core

// streaming.go holds the io.Reader wrappers applied to every uploaded remark
// file before it reaches the CSV reader:
//
//   - StreamingCountingReader counts raw bytes for size reporting
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - StreamingUTF8Sanitizer replaces invalid UTF-8 with U+FFFD
//
// WrapForStreaming chains them in that order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

const sanitizeChunk = 32 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StreamingUTF8Sanitizer replaces invalid UTF-8 sequences with U+FFFD while
// streaming. A multi-byte rune split across two reads is carried over and
// decoded whole.
type StreamingUTF8Sanitizer struct {
	r      io.Reader
	buf    []byte
	carry  int
	outBuf []byte
	out    []byte
	err    error
}

// NewStreamingUTF8Sanitizer creates a sanitizer reading from r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		r:   r,
		buf: make([]byte, sanitizeChunk+utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *StreamingUTF8Sanitizer) fill() {
	n, err := s.r.Read(s.buf[s.carry:])
	end := s.carry + n
	s.err = err

	keep := 0
	if err == nil {
		keep = incompleteSuffix(s.buf[:end])
	}

	s.outBuf = appendSanitized(s.outBuf[:0], s.buf[:end-keep])
	s.out = s.outBuf
	s.carry = copy(s.buf, s.buf[end-keep:end])
}

// appendSanitized appends src to dst with every invalid byte replaced by
// utf8.RuneError.
func appendSanitized(dst, src []byte) []byte {
	if utf8.Valid(src) {
		return append(dst, src...)
	}
	for len(src) > 0 {
		r, size := utf8.DecodeRune(src)
		if r == utf8.RuneError && size == 1 {
			dst = utf8.AppendRune(dst, utf8.RuneError)
		} else {
			dst = append(dst, src[:size]...)
		}
		src = src[size:]
	}
	return dst
}

// incompleteSuffix returns the length of a truncated multi-byte rune at the
// end of data, or 0 if data ends on a rune boundary.
func incompleteSuffix(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		if !utf8.RuneStart(data[len(data)-i]) {
			continue
		}
		if utf8.FullRune(data[len(data)-i:]) {
			return 0
		}
		return i
	}
	return 0
}

// BOMSkippingReader drops a UTF-8 BOM (EF BB BF) at the start of the stream.
// Spreadsheet exports on Windows commonly add one, and it would otherwise
// become part of the first header name.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// StreamingCountingReader counts the bytes read through it.
type StreamingCountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewStreamingCountingReader creates a counting reader with an optional total size.
func NewStreamingCountingReader(r io.Reader, total int64) *StreamingCountingReader {
	return &StreamingCountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *StreamingCountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the percentage of Total read so far, or 0 if Total is unknown.
func (r *StreamingCountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// WrapForStreaming returns r with byte counting, BOM skipping and UTF-8
// sanitizing applied, plus the counter for the raw input.
func WrapForStreaming(r io.Reader, totalSize int64) (io.Reader, *StreamingCountingReader) {
	counter := NewStreamingCountingReader(r, totalSize)
	return NewStreamingUTF8Sanitizer(NewBOMSkippingReader(counter)), counter
}
