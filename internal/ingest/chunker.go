package ingest

const (
	// Chunk sizing in runes. Overlap keeps sentence fragments that straddle a
	// boundary retrievable from either side.
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// ChunkText slices text into fixed-size rune windows with overlap. size and
// overlap fall back to the defaults when non-positive or inconsistent.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
