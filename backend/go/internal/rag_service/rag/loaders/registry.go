package loaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/interfaces"
)

type registration struct {
	loader    interfaces.Loader
	mimeTypes []string
}

// Registry dispatches a file to its loader by extension and checks the
// content signature before loading.
type Registry struct {
	loaders map[string]registration
}

var _ interfaces.Loader = (*Registry)(nil)

// NewRegistry returns a registry for .pdf, .txt, .docx and .md.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]registration)}
	r.Register(".pdf", NewPdfLoader(), "application/pdf")
	r.Register(".txt", NewTxtLoader(), "text/plain")
	r.Register(".md", NewMarkdownLoader(), "text/plain")
	r.Register(".docx", NewDocxLoader(),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/zip")
	return r
}

// Register binds a loader to a file extension. An empty mime list skips content sniffing.
func (r *Registry) Register(ext string, loader interfaces.Loader, mimeTypes ...string) {
	r.loaders[normalizeExt(ext)] = registration{loader: loader, mimeTypes: mimeTypes}
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.loaders[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load extracts the text of path. Every failure is a LoadError; an unknown
// extension wraps errs.ErrUnsupportedFormat.
func (r *Registry) Load(ctx context.Context, path string) (string, error) {
	reg, ok := r.loaders[normalizeExt(filepath.Ext(path))]
	if !ok {
		return "", errs.Load(path, fmt.Errorf("%w: %s", errs.ErrUnsupportedFormat, path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errs.Load(path, err)
	}

	// Empty files carry no signature; their loaders decide.
	if len(reg.mimeTypes) > 0 && info.Size() > 0 {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return "", errs.Load(path, fmt.Errorf("failed to detect MIME type: %w", err))
		}
		if !accepts(mtype, reg.mimeTypes) {
			return "", errs.Load(path, fmt.Errorf("content type %s does not match extension %s", mtype.String(), filepath.Ext(path)))
		}
	}

	text, err := reg.loader.Load(ctx, path)
	if err != nil {
		return "", errs.Load(path, err)
	}
	return text, nil
}

// accepts walks the detected type and its parents, so text/html still counts as text/plain.
func accepts(mtype *mimetype.MIME, mtypes []string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if slices.ContainsFunc(mtypes, m.Is) {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
