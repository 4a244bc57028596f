package files

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// utf7Decoder decodes RFC 2152 UTF-7 into UTF-8.
//
// Direct characters are copied as is. A '+' opens a modified base64 run of
// UTF-16 code units that ends at the first non-base64 byte; a '-' closing
// the run is absorbed and "+-" stands for a literal '+'.
type utf7Decoder struct {
	inBase64 bool
	bits     uint32
	nbits    uint
	highSurr rune
}

func newUTF7Decoder() transform.Transformer {
	return &utf7Decoder{}
}

// Reset implements transform.Transformer.
func (d *utf7Decoder) Reset() {
	*d = utf7Decoder{}
}

// Transform implements transform.Transformer.
func (d *utf7Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]

		if !d.inBase64 {
			if c == '+' {
				if nSrc+1 >= len(src) && !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}
				if nSrc+1 < len(src) && src[nSrc+1] == '-' {
					if nDst >= len(dst) {
						return nDst, nSrc, transform.ErrShortDst
					}
					dst[nDst] = '+'
					nDst++
					nSrc += 2
					continue
				}
				d.inBase64, d.bits, d.nbits = true, 0, 0
				nSrc++
				continue
			}

			r := rune(c)
			if c >= utf8.RuneSelf {
				r = utf8.RuneError
			}
			if len(dst)-nDst < utf8.RuneLen(r) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += utf8.EncodeRune(dst[nDst:], r)
			nSrc++
			continue
		}

		v, ok := base64Value(c)
		if !ok {
			// run terminated; a pending high surrogate is invalid
			if d.highSurr != 0 {
				if len(dst)-nDst < utf8.UTFMax {
					return nDst, nSrc, transform.ErrShortDst
				}
				nDst += utf8.EncodeRune(dst[nDst:], utf8.RuneError)
				d.highSurr = 0
			}
			d.inBase64, d.bits, d.nbits = false, 0, 0
			if c == '-' {
				nSrc++
			}
			continue
		}

		if d.nbits+6 >= 16 && len(dst)-nDst < 2*utf8.UTFMax {
			return nDst, nSrc, transform.ErrShortDst
		}
		d.bits = d.bits<<6 | uint32(v)
		d.nbits += 6
		nSrc++

		if d.nbits >= 16 {
			d.nbits -= 16
			unit := rune(d.bits >> d.nbits & 0xffff)
			d.bits &= 1<<d.nbits - 1
			nDst += d.emitUnit(dst[nDst:], unit)
		}
	}

	if atEOF && d.highSurr != 0 {
		if len(dst)-nDst < utf8.UTFMax {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], utf8.RuneError)
		d.highSurr = 0
	}
	return nDst, nSrc, nil
}

// emitUnit writes one UTF-16 code unit, pairing surrogates. dst must hold
// at least 2*utf8.UTFMax bytes.
func (d *utf7Decoder) emitUnit(dst []byte, unit rune) int {
	switch {
	case utf16.IsSurrogate(unit) && unit < 0xdc00:
		n := 0
		if d.highSurr != 0 {
			n = utf8.EncodeRune(dst, utf8.RuneError)
		}
		d.highSurr = unit
		return n
	case utf16.IsSurrogate(unit):
		r := utf8.RuneError
		if d.highSurr != 0 {
			r = utf16.DecodeRune(d.highSurr, unit)
		}
		d.highSurr = 0
		return utf8.EncodeRune(dst, r)
	default:
		n := 0
		if d.highSurr != 0 {
			n = utf8.EncodeRune(dst, utf8.RuneError)
			d.highSurr = 0
		}
		return n + utf8.EncodeRune(dst[n:], unit)
	}
}

func base64Value(c byte) (byte, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return c - 'A', true
	case c >= 'a' && c <= 'z':
		return c - 'a' + 26, true
	case c >= '0' && c <= '9':
		return c - '0' + 52, true
	case c == '+':
		return 62, true
	case c == '/':
		return 63, true
	}
	return 0, false
}
