// Package textproc cleans uploaded text and splits it into retrieval windows.
package textproc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/askbase/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize decodes raw upload bytes to UTF-8, strips carriage returns and
// trims surrounding whitespace. Recognised source encodings are UTF-8,
// Windows-1252 and ISO-8859-1.
func Normalize(raw []byte) (string, error) {
	text, err := decode(raw)
	if err != nil {
		return "", err
	}
	text = strings.ReplaceAll(text, "\r", "")
	return strings.TrimSpace(text), nil
}

// DetectEncoding names the encoding Normalize would decode raw with.
func DetectEncoding(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	switch {
	case utf8.Valid(raw):
		return "UTF-8"
	case isWindows1252(raw):
		return "Windows-1252"
	default:
		return "ISO-8859-1"
	}
}

func decode(raw []byte) (string, error) {
	if bytes.IndexByte(raw, 0x00) >= 0 {
		return "", domain.ErrUndecodableText
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	switch DetectEncoding(raw) {
	case "UTF-8":
		return string(raw), nil
	case "Windows-1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", domain.ErrUndecodableText.WithCause(err)
		}
		return string(out), nil
	default:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", domain.ErrUndecodableText.WithCause(err)
		}
		return string(out), nil
	}
}

// isWindows1252 reports whether raw uses the 0x80-0x9F range the way
// Windows-1252 does. Bytes left undefined by Windows-1252 mean ISO-8859-1.
func isWindows1252(raw []byte) bool {
	seen := false
	for _, b := range raw {
		if b < 0x80 || b > 0x9F {
			continue
		}
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return false
		}
		seen = true
	}
	return seen
}
