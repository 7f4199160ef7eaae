// Package pagination implements keyset cursors over (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// Cursor points just past the last row of a page.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

var ErrInvalidCursor = errors.New("invalid cursor format")

const separator = "|"

// EncodeCursor returns an opaque, URL-safe cursor. An empty id yields "".
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := timestamp.UTC().Format(time.RFC3339Nano) + separator + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor from EncodeCursor. "" decodes to nil, meaning
// the first page.
func DecodeCursor(cursor string) (*Cursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), separator)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	timestamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{LastID: id, Timestamp: timestamp}, nil
}

// Limit clamps a requested page size into [1, max], using def for
// non-positive requests.
func Limit(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	return min(requested, max)
}
