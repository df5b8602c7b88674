package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var ErrUnknownEncoding = errors.New("unknown encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding is a resolved output text encoding.
type Encoding struct {
	// Name is the canonical name, suitable for an XML declaration.
	Name        string
	transformer transform.Transformer
	// refs replaces unencodable runes with character references.
	refs transform.Transformer
	// BOM is written at the start of an empty file.
	BOM []byte
}

// ResolveEncoding maps a user supplied encoding name to an Encoding.
// Accepted are utf-8, ascii, ansi (Windows-1252), IANA and WHATWG names, and
// bare code page numbers such as 1252 or 850. bom only applies to UTF-8.
func ResolveEncoding(name string, bom bool) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	switch key {
	case "", "utf-8", "utf8":
		enc := Encoding{Name: "UTF-8", transformer: unicode.UTF8.NewEncoder()}
		if bom {
			enc.BOM = utf8BOM
		}
		return enc, nil
	case "ascii", "us-ascii":
		return Encoding{
			Name:        "US-ASCII",
			transformer: runes.Map(asciiOnly),
			refs:        charRefs{encodable: isASCII},
		}, nil
	case "ansi", "windows-1252", "cp1252":
		return charmapEncoding("windows-1252", charmap.Windows1252), nil
	}

	enc, canonical := lookupEncoding(key)
	if enc == nil && isDigits(key) {
		for _, candidate := range []string{"windows-" + key, "cp" + key, "ibm" + key} {
			if enc, canonical = lookupEncoding(candidate); enc != nil {
				break
			}
		}
	}
	if enc == nil {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}

	if cm, ok := enc.(*charmap.Charmap); ok {
		return charmapEncoding(canonical, cm), nil
	}
	return Encoding{
		Name:        canonical,
		transformer: encoding.ReplaceUnsupported(enc.NewEncoder()),
		refs:        encoding.HTMLEscapeUnsupported(enc.NewEncoder()),
	}, nil
}

// NewWriter returns a writer that encodes UTF-8 input before passing it to w.
// Close flushes pending bytes but does not close w.
func (e Encoding) NewWriter(w io.Writer) io.WriteCloser {
	if e.transformer == nil {
		return nopWriteCloser{w}
	}
	return transform.NewWriter(w, e.transformer)
}

// NewXMLWriter is NewWriter for markup: runes the encoding cannot represent
// are written as numeric character references such as &#xE4; instead of '?'.
func (e Encoding) NewXMLWriter(w io.Writer) io.WriteCloser {
	if e.refs == nil {
		return e.NewWriter(w)
	}
	return transform.NewWriter(w, e.refs)
}

func lookupEncoding(name string) (encoding.Encoding, string) {
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		if canonical, err := ianaindex.IANA.Name(enc); err == nil {
			return enc, canonical
		}
		return enc, name
	}
	if enc, err := htmlindex.Get(name); err == nil && enc != nil {
		if canonical, err := htmlindex.Name(enc); err == nil {
			return enc, canonical
		}
		return enc, name
	}
	return nil, ""
}

// charmapEncoding replaces runes the code page cannot represent with '?'.
func charmapEncoding(name string, cm *charmap.Charmap) Encoding {
	unencodable := runes.Map(func(r rune) rune {
		if _, ok := cm.EncodeRune(r); !ok {
			return '?'
		}
		return r
	})
	refs := charRefs{encodable: func(r rune) bool {
		_, ok := cm.EncodeRune(r)
		return ok
	}}
	return Encoding{
		Name:        name,
		transformer: transform.Chain(unencodable, cm.NewEncoder()),
		refs:        transform.Chain(refs, cm.NewEncoder()),
	}
}

func asciiOnly(r rune) rune {
	if !isASCII(r) {
		return '?'
	}
	return r
}

func isASCII(r rune) bool { return r < utf8.RuneSelf }

// charRefs rewrites UTF-8 runes that fail encodable as &#xHEX; and passes
// the rest through unchanged.
type charRefs struct {
	transform.NopResetter
	encodable func(rune) bool
}

func (c charRefs) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		out := src[nSrc : nSrc+size]
		if !c.encodable(r) {
			out = fmt.Appendf(nil, "&#x%X;", r)
		}
		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc += size
	}
	return nDst, nSrc, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
