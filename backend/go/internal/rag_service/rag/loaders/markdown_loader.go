package loaders

import (
	"context"
	"os"
	"regexp"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
// The markup itself is kept; headers feed structure tagging downstream.
type MarkdownLoader struct {
	StripImages bool
}

// NewMarkdownLoader creates a new MarkdownLoader that drops image references.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{StripImages: true}
}

// imageRegex is used to find Markdown image syntax (e.g., ![alt text](path/to/image.jpg))
var imageRegex = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// Load reads a Markdown file. Image references are replaced by their alt text.
func (l *MarkdownLoader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := decodeText(content)
	if err != nil {
		return "", err
	}
	if l.StripImages {
		text = imageRegex.ReplaceAllString(text, "$1")
	}
	return text, nil
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
