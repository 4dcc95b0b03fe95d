package loaders

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
)

var licenseOnce sync.Once
var licenseErr error

// SetUnidocLicense registers a metered unioffice license key. Only the first call has effect.
func SetUnidocLicense(key string) error {
	licenseOnce.Do(func() {
		if key == "" {
			return
		}
		if err := license.SetMeteredKey(key); err != nil {
			licenseErr = fmt.Errorf("set unioffice license: %w", err)
		}
	})
	return licenseErr
}

// DocxLoader implements the Loader interface for reading Word (.docx) files.
type DocxLoader struct{}

// NewDocxLoader creates a new DocxLoader.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load returns one line per paragraph followed by one line per table row,
// cells joined by " | ".
func (l *DocxLoader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading docx: %w", err)
	}
	defer doc.Close()

	var lines []string
	for _, p := range doc.Paragraphs() {
		lines = append(lines, paragraphText(p))
	}

	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			cells := row.Cells()
			texts := make([]string, len(cells))
			for i, cell := range cells {
				var parts []string
				for _, p := range cell.Paragraphs() {
					parts = append(parts, paragraphText(p))
				}
				texts[i] = strings.Join(parts, "\n")
			}
			lines = append(lines, strings.Join(texts, " | "))
		}
	}

	return strings.Join(lines, "\n"), nil
}

func paragraphText(p document.Paragraph) string {
	var b strings.Builder
	for _, r := range p.Runs() {
		b.WriteString(r.Text())
	}
	return b.String()
}

// compile-time check to ensure DocxLoader implements the Loader interface
var _ interfaces.Loader = (*DocxLoader)(nil)
