package textproc

import (
	"iter"

	"github.com/cloo-solutions/askbase/internal/domain"
)

// Chunker splits text into fixed-size, overlapping rune windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker requires size > 0 and 0 <= overlap < size so the window
// always advances.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, domain.ErrInvalidChunkConfig
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Step returns the distance between window starts
func (c *Chunker) Step() int { return c.size - c.overlap }

// Chunks yields (index, window) pairs. Window i starts at rune i*Step() and
// is size runes long, clipped at the end of text. The sequence can be
// ranged over any number of times.
func (c *Chunker) Chunks(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		runes := []rune(text)
		step := c.Step()
		for i, start := 0, 0; start < len(runes); i, start = i+1, start+step {
			end := min(start+c.size, len(runes))
			if !yield(i, string(runes[start:end])) {
				return
			}
		}
	}
}

// Collect materialises Chunks(text).
func (c *Chunker) Collect(text string) []string {
	var out []string
	for _, chunk := range c.Chunks(text) {
		out = append(out, chunk)
	}
	return out
}
