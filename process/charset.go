package process

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF16BE = []byte{0xfe, 0xff}

	charsetRule = []byte(`@charset "`)
)

// stylesheet is stylesheet text converted to UTF-8 along with what is
// necessary to convert it back to original encoding.
type stylesheet struct {
	text []byte
	enc  encoding.Encoding // nil when text was UTF-8 already
	name string
	bom  bool // UTF-8 byte order mark has to be restored
}

// decodeStylesheet detects stylesheet encoding: byte order mark first, then
// @charset rule, then fallback, which may be nil for UTF-8.
func decodeStylesheet(data []byte, fallback encoding.Encoding) (*stylesheet, error) {
	var (
		s   = &stylesheet{text: data, name: "utf-8"}
		err error
	)
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		s.text, s.bom = data[len(bomUTF8):], true
		return s, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		s.enc, s.name = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		s.enc, s.name = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be"
	case bytes.HasPrefix(data, charsetRule):
		label, ok := charsetLabel(data)
		if !ok {
			break
		}
		enc, name := charset.Lookup(label)
		if enc == nil {
			return nil, fmt.Errorf("unsupported stylesheet charset %q", label)
		}
		// @charset may not switch to UTF-16 without byte order mark
		if name == "utf-8" || strings.HasPrefix(name, "utf-16") {
			return s, nil
		}
		s.enc, s.name = enc, name
	case fallback != nil:
		s.enc = fallback
		if s.name, err = ianaindex.IANA.Name(fallback); err != nil {
			s.name = "forced"
		}
	default:
		return s, nil
	}

	if s.enc == nil {
		return s, nil
	}
	if s.text, err = s.enc.NewDecoder().Bytes(data); err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet from %s: %w", s.name, err)
	}
	return s, nil
}

// encode converts UTF-8 text back to the stylesheet encoding.
func (s *stylesheet) encode(text []byte) ([]byte, error) {
	if s.enc == nil {
		if s.bom {
			return append(bytes.Clone(bomUTF8), text...), nil
		}
		return text, nil
	}
	out, err := s.enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("unable to encode stylesheet to %s: %w", s.name, err)
	}
	return out, nil
}

// charsetLabel extracts name from @charset "name"; rule which must be the
// very first thing in stylesheet.
func charsetLabel(data []byte) (string, bool) {
	rest := data[len(charsetRule):]
	end := bytes.IndexByte(rest, '"')
	if end <= 0 || !bytes.HasPrefix(rest[end:], []byte(`";`)) {
		return "", false
	}
	return string(rest[:end]), true
}

// codePage resolves IANA character set name given on command line.
func codePage(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, errors.New("character set is not supported")
	}
	return enc, nil
}
