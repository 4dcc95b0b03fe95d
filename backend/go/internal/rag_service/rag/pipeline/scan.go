package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/loaders"
)

// Scanner enumerates the indexable files under a directory.
// Hidden files and directories are skipped. Include and exclude patterns
// are matched against the slash-separated path relative to the root;
// "**" crosses directory boundaries.
type Scanner struct {
	loader  *loaders.Registry
	include []glob.Glob
	exclude []glob.Glob
}

// NewScanner compiles the include and exclude patterns.
func NewScanner(loader *loaders.Registry, include, exclude []string) (*Scanner, error) {
	inc, err := compileGlobs(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileGlobs(exclude)
	if err != nil {
		return nil, err
	}
	return &Scanner{loader: loader, include: inc, exclude: exc}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", errs.ErrInvalidConfig, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Scan walks root in lexical order and returns the supported files.
func (s *Scanner) Scan(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !s.loader.Supports(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if s.Match(filepath.ToSlash(rel)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Match applies the include and exclude patterns to a relative path.
func (s *Scanner) Match(rel string) bool {
	for _, g := range s.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, g := range s.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
