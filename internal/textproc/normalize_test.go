package textproc

import (
	"testing"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"utf8 passthrough", []byte("  Olá, mundo!\r\n"), "Olá, mundo!"},
		{"strips bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("texto")...), "texto"},
		{"strips carriage returns inside", []byte("linha 1\r\nlinha 2\r\n"), "linha 1\nlinha 2"},
		{"iso-8859-1", []byte{'a', 'v', 0xE3, 'o'}, "avão"},
		{"windows-1252 smart quotes", []byte{0x93, 'o', 'i', 0x94}, "“oi”"},
		{"empty", []byte(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_RejectsBinary(t *testing.T) {
	_, err := Normalize([]byte{'a', 0x00, 'b'})
	assert.ErrorIs(t, err, domain.ErrUndecodableText)
}

func TestDetectEncoding(t *testing.T) {
	assert.Equal(t, "UTF-8", DetectEncoding([]byte("ação")))
	assert.Equal(t, "Windows-1252", DetectEncoding([]byte{0x80, '5'}))
	assert.Equal(t, "ISO-8859-1", DetectEncoding([]byte{0xE7, 0x81}))
	assert.Equal(t, "ISO-8859-1", DetectEncoding([]byte{'c', 0xE7, 'a'}))
}
