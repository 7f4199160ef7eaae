package pagination

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.FixedZone("BRT", -3*3600))

	encoded := EncodeCursor("doc-1", ts)
	assert.Equal(t, url.QueryEscape(encoded), encoded, "cursor must not need escaping in a query string")

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", cursor.LastID)
	assert.True(t, ts.Equal(cursor.Timestamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		cursor  string
		wantNil bool
		wantErr bool
	}{
		{"empty is first page", "", true, false},
		{"blank is first page", "  ", true, false},
		{"not base64", "%%%", false, true},
		{"missing separator", enc("2026-03-01T00:00:00Z"), false, true},
		{"missing id", enc("2026-03-01T00:00:00Z|"), false, true},
		{"bad timestamp", enc("yesterday|doc-1"), false, true},
		{"id containing separator", enc("2026-03-01T00:00:00Z|a|b"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeCursor(tt.cursor)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCursor)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			} else {
				assert.NotNil(t, cursor)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	assert.Equal(t, 20, Limit(0, 20, 100))
	assert.Equal(t, 20, Limit(-5, 20, 100))
	assert.Equal(t, 7, Limit(7, 20, 100))
	assert.Equal(t, 100, Limit(500, 20, 100))
}
