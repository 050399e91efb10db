package chunker

import (
	"fmt"

	"github.com/poiesic/codemine/core"
)

const (
	// DefaultMaxChunkSize is the largest chunk produced by default, in characters.
	DefaultMaxChunkSize = 2000

	// DefaultOverlap is the default number of characters shared by adjacent chunks.
	DefaultOverlap = 100

	// lookbackDivisor sets the newline search window to maxChunkSize/lookbackDivisor.
	lookbackDivisor = 5
)

// ValidateSizes checks that maxChunkSize and overlap describe a splittable window.
func ValidateSizes(maxChunkSize, overlap int) error {
	if maxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive, got %d", core.ErrInvalidConfig, maxChunkSize)
	}
	if overlap <= 0 {
		return fmt.Errorf("%w: overlap must be positive, got %d", core.ErrInvalidConfig, overlap)
	}
	if overlap >= maxChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than max chunk size %d", core.ErrInvalidConfig, overlap, maxChunkSize)
	}
	return nil
}

// Split divides file into chunks of at most maxChunkSize characters where
// each chunk after the first begins overlap characters before the previous
// one ends.
//
// An empty file yields no chunks. A file no longer than maxChunkSize yields
// exactly one chunk equal to the file. Output depends only on the inputs.
func Split(file core.SourceFile, maxChunkSize, overlap int) ([]core.Chunk, error) {
	if err := ValidateSizes(maxChunkSize, overlap); err != nil {
		return nil, err
	}

	text := []rune(file.Text)
	n := len(text)
	if n == 0 {
		return nil, nil
	}

	lang := file.Language
	if lang == "" {
		lang = core.LanguageFromPath(file.Path)
	}

	newChunk := func(index, start, end int) core.Chunk {
		return core.Chunk{
			File:     file.Path,
			Language: lang,
			Index:    index,
			Text:     string(text[start:end]),
			Start:    start,
			End:      end,
		}
	}

	chunks := make([]core.Chunk, 0, estimate(n, maxChunkSize, overlap))
	start := 0
	for {
		end := start + maxChunkSize
		if end >= n {
			chunks = append(chunks, newChunk(len(chunks), start, n))
			return chunks, nil
		}

		end = preferLineBreak(text, start, end, overlap, maxChunkSize/lookbackDivisor)
		chunks = append(chunks, newChunk(len(chunks), start, end))
		start = end - overlap
	}
}

// preferLineBreak moves end back to just after the nearest newline within
// window characters, provided the next chunk would still start past start.
func preferLineBreak(text []rune, start, end, overlap, window int) int {
	floor := max(end-window, start+1)
	for i := end - 1; i >= floor; i-- {
		if text[i] != '\n' {
			continue
		}
		if i+1 > start+overlap {
			return i + 1
		}
		break
	}
	return end
}

func estimate(n, maxChunkSize, overlap int) int {
	if n <= maxChunkSize {
		return 1
	}
	return (n-overlap)/(maxChunkSize-overlap) + 1
}
