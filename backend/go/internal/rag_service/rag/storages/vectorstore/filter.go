package vectorstore

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/raghavkhare98/documind/backend/go/internal/database/milvus"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/errs"
	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// QuoteString renders s as a double-quoted filter literal. Backslashes and
// quotes are escaped; control characters are rejected.
func QuoteString(s string) (string, error) {
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character %U in value %q", errs.ErrInvalidFilter, r, s)
		}
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`, nil
}

// Eq builds `field == "value"`.
func Eq(field, value string) (string, error) {
	q, err := QuoteString(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s == %s", field, q), nil
}

// BuildFilter derives the boolean filter of a search. A non-empty FilterExpr
// replaces the doc type and source filters entirely; otherwise those present
// are ANDed. An empty result means no filtering.
func BuildFilter(req schema.SearchRequest) (string, error) {
	if expr := strings.TrimSpace(req.FilterExpr); expr != "" {
		if err := ValidateExpr(expr); err != nil {
			return "", err
		}
		return expr, nil
	}

	var conditions []string
	if req.DocType != "" {
		if !req.DocType.Valid() {
			_, err := schema.ParseDocType(string(req.DocType))
			return "", fmt.Errorf("%w: %w", errs.ErrInvalidFilter, err)
		}
		cond, err := Eq(milvus.FieldDocType, string(req.DocType))
		if err != nil {
			return "", err
		}
		conditions = append(conditions, cond)
	}
	if req.Source != "" {
		cond, err := Eq(milvus.FieldSource, req.Source)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, cond)
	}
	return strings.Join(conditions, " and "), nil
}

// ValidateExpr rejects raw expressions with unbalanced quotes or parentheses
// or with control characters, before they reach the server.
func ValidateExpr(expr string) error {
	var (
		quote   rune
		escaped bool
		depth   int
	)
	for _, r := range expr {
		if unicode.IsControl(r) && r != '\t' {
			return fmt.Errorf("%w: control character %U", errs.ErrInvalidFilter, r)
		}
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced parentheses in %q", errs.ErrInvalidFilter, expr)
			}
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated string in %q", errs.ErrInvalidFilter, expr)
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses in %q", errs.ErrInvalidFilter, expr)
	}
	return nil
}
