package tabular

// streaming.go holds the reader wrappers applied to delimited uploads before
// they reach encoding/csv. Spreadsheet exports from Windows tools routinely
// start with a UTF-8 BOM and occasionally carry Windows-1252 bytes; both
// would otherwise end up in the first column name or break parsing.

import (
	"io"
	"unicode/utf8"
)

// bomReader drops a leading UTF-8 byte order mark (EF BB BF).
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		switch {
		case n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF:
			b.head = nil
		default:
			b.head = append([]byte(nil), buf[:n]...)
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if len(b.head) == 0 && err != nil {
			return 0, io.EOF
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces bytes that are not valid UTF-8 with '?'.
// Multi-byte sequences split across reads are carried to the next call.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if asciiOnly(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func asciiOnly(data []byte) bool {
	for _, c := range data {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, an incomplete rune at the end is moved to pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// wrapDelimited applies BOM removal, then UTF-8 sanitization.
func wrapDelimited(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMReader(r))
}
