package splitters

import (
	"fmt"
	"strings"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// DefaultSeparators are tried in order, from paragraph breaks down to single runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// RecursiveSplitter splits text on the coarsest separator that yields pieces
// under ChunkSize words, recursing into oversized pieces with the finer
// separators, then merges adjacent pieces back up to ChunkSize words with
// Overlap words carried between neighbouring chunks.
//
// Separators stay attached to the start of the piece that follows them, so
// joining the pieces reproduces the input. A punctuation separator leading a
// piece is not counted as a word, and a chunk never starts with one.
type RecursiveSplitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// NewRecursiveSplitter validates the settings. A nil separator list selects DefaultSeparators.
func NewRecursiveSplitter(chunkSize, overlap int, separators []string) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, errs.Chunking(fmt.Errorf("%w: chunk size must be positive, got %d", errs.ErrInvalidConfig, chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errs.Chunking(fmt.Errorf("%w: overlap %d must be in [0, %d)", errs.ErrInvalidConfig, overlap, chunkSize))
	}
	if separators == nil {
		separators = DefaultSeparators
	}
	seps := make([]string, len(separators))
	copy(seps, separators)
	return &RecursiveSplitter{ChunkSize: chunkSize, Overlap: overlap, Separators: seps}, nil
}

// SplitText returns the chunk texts of text in document order. Chunks are
// trimmed and never empty; empty input yields no chunks.
func (s *RecursiveSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	var chunks []string

	separator := ""
	var finer []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if pieceLength(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(finer) == 0 {
			if t := joinPieces([]string{piece}); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, finer)...)
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most ChunkSize words. After each
// emitted chunk, leading pieces are dropped until at most Overlap words remain
// and the next piece fits.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		lengths []int
		total   int
	)
	for _, piece := range pieces {
		n := pieceLength(piece)
		if total+n > s.ChunkSize && len(current) > 0 {
			if chunk := joinPieces(current); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.Overlap || (total+n > s.ChunkSize && total > 0) {
				total -= lengths[0]
				current, lengths = current[1:], lengths[1:]
			}
		}
		current = append(current, piece)
		lengths = append(lengths, n)
		total += n
	}
	if chunk := joinPieces(current); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinPieces(pieces []string) string {
	if len(pieces) == 0 {
		return ""
	}
	first := trimLeadingSeparator(pieces[0])
	return strings.TrimSpace(first + strings.Join(pieces[1:], ""))
}

// punctuationSeparators end a sentence or clause and are followed by a space.
var punctuationSeparators = []string{". ", "! ", "? ", "; ", ", "}

// trimLeadingSeparator drops the punctuation of a separator that starts piece.
func trimLeadingSeparator(piece string) string {
	for _, sep := range punctuationSeparators {
		if strings.HasPrefix(piece, sep) {
			return piece[len(sep)-1:]
		}
	}
	return piece
}

func pieceLength(piece string) int {
	return WordCount(trimLeadingSeparator(piece))
}

// splitKeepingSeparator splits text on sep, prefixing every piece but the
// first with the separator. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

// WordCount is the length function used for chunk sizing.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
