package files

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding names reported in FileReadResult.EncodingName.
const (
	EncodingUTF7    = "utf-7"
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingUTF32LE = "utf-32le"
	EncodingUTF32BE = "utf-32be"
)

const encodingSampleBytes = 4096

var (
	encUTF7    = namedEncoding{name: EncodingUTF7, newDecoder: newUTF7Decoder}
	encUTF8    = fromEncoding(EncodingUTF8, unicode.UTF8)
	encUTF16LE = fromEncoding(EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM))
	encUTF16BE = fromEncoding(EncodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM))
	encUTF32LE = fromEncoding(EncodingUTF32LE, utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM))
	encUTF32BE = fromEncoding(EncodingUTF32BE, utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM))
)

// namedEncoding pairs a decoder factory with the name reported to callers.
type namedEncoding struct {
	name       string
	newDecoder func() transform.Transformer
}

func fromEncoding(name string, enc encoding.Encoding) namedEncoding {
	return namedEncoding{
		name:       name,
		newDecoder: func() transform.Transformer { return enc.NewDecoder() },
	}
}

// reader wraps r so that it yields UTF-8.
func (e namedEncoding) reader(r io.Reader) io.Reader {
	return transform.NewReader(r, e.newDecoder())
}

// lookupEncoding resolves a WHATWG encoding label such as "windows-1252".
func lookupEncoding(name string) (namedEncoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "utf-8" || label == "utf8" {
		return encUTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return namedEncoding{}, errors.Wrap(err, "unknown encoding")
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = label
	}
	if canonical == "utf-8" {
		return encUTF8, nil
	}
	return fromEncoding(canonical, enc), nil
}

// DetectEncoding returns the name of the encoding of the file at path.
func (s *Service) DetectEncoding(path string) (string, error) {
	enc, err := s.detectFileEncoding(path)
	if err != nil {
		return "", err
	}
	return enc.name, nil
}

// detectFileEncoding inspects the head of the file at path.
func (s *Service) detectFileEncoding(path string) (namedEncoding, error) {
	fp, err := os.Open(path)
	if err != nil {
		return namedEncoding{}, errors.Wrap(err, "open file")
	}
	defer fp.Close() // nolint: errcheck

	head := make([]byte, encodingSampleBytes)
	n, err := io.ReadFull(fp, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return namedEncoding{}, errors.Wrap(err, "read file head")
	}

	return detectEncoding(head[:n], n == len(head), s.defaultEncoding), nil
}

// detectEncoding classifies head by its byte-order mark, then by whether it
// looks like UTF-8, falling back to def. truncated reports that the file
// continues past head.
func detectEncoding(head []byte, truncated bool, def namedEncoding) namedEncoding {
	if enc, ok := detectBOM(head); ok {
		return enc
	}
	if looksLikeUTF8(head, truncated) {
		return encUTF8
	}
	return def
}

// detectBOM matches the first bytes against known byte-order marks. The
// UTF-32LE mark shares its prefix with UTF-16LE, so it is checked first.
func detectBOM(head []byte) (namedEncoding, bool) {
	switch {
	case bytes.HasPrefix(head, []byte{0x2b, 0x2f, 0x76}):
		return encUTF7, true
	case bytes.HasPrefix(head, []byte{0xef, 0xbb, 0xbf}):
		return encUTF8, true
	case bytes.HasPrefix(head, []byte{0xff, 0xfe, 0x00, 0x00}):
		return encUTF32LE, true
	case bytes.HasPrefix(head, []byte{0xff, 0xfe}):
		return encUTF16LE, true
	case bytes.HasPrefix(head, []byte{0xfe, 0xff}):
		return encUTF16BE, true
	case bytes.HasPrefix(head, []byte{0x00, 0x00, 0xfe, 0xff}):
		return encUTF32BE, true
	}
	return namedEncoding{}, false
}

// looksLikeUTF8 reports whether sample holds multi-byte UTF-8 and nothing
// invalid. When truncated, an incomplete sequence at the very end of the
// sample is a rune cut by the read and counts as multi-byte.
func looksLikeUTF8(sample []byte, truncated bool) bool {
	var multiByte bool
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		if r == utf8.RuneError && size == 1 {
			return truncated && !utf8.FullRune(sample)
		}
		if size > 1 {
			multiByte = true
		}
		sample = sample[size:]
	}
	return multiByte
}

// stripBOM drops a leading U+FEFF from decoded text.
func stripBOM(text string) string {
	return strings.TrimPrefix(text, "\ufeff")
}
