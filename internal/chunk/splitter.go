// Package chunk splits post content into overlapping pieces for embedding.
package chunk

import (
	"errors"
	"strings"
)

// Splitter cuts text into fixed-size character chunks with overlap.
// Overlapping windows keep sentences that straddle a boundary retrievable
// from both neighboring chunks.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. size must be positive and overlap must be
// non-negative and smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be in [0, size)")
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the chunks of text. Whitespace-only input yields no chunks.
// Boundaries are counted in runes so multi-byte text never splits mid-character.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= s.size {
		return []string{trimmed}
	}

	step := s.size - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
