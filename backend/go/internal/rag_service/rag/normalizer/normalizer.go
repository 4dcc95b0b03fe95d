// Package normalizer cleans raw extracted text before segmentation.
// Everything here is pure: no I/O and no shared state.
package normalizer

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedText is returned for input that cannot be plain text.
var ErrMalformedText = errors.New("malformed text")

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	bulletLine      = regexp.MustCompile(`^[-*+•]\s+`)
	numberedLine    = regexp.MustCompile(`^\d+[.)]\s+`)
	sentenceEnd     = regexp.MustCompile(`[.!?]+`)
)

var typographic = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
)

// Structure tags prefixed to recognised lines.
const (
	TagHeader   = "[HEADER]"
	TagTable    = "[TABLE]"
	TagBullet   = "[BULLET]"
	TagNumbered = "[NUMBERED]"
)

// TextNormalizer runs the cleaning steps in order: whitespace, special
// characters, structure tagging.
type TextNormalizer struct {
	KeepPunctuation   bool
	PreserveStructure bool
}

// New returns a TextNormalizer with every step enabled.
func New() *TextNormalizer {
	return &TextNormalizer{KeepPunctuation: true, PreserveStructure: true}
}

// Normalize cleans text. Input containing NUL bytes is rejected as malformed.
func (n *TextNormalizer) Normalize(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if strings.IndexByte(text, 0) >= 0 {
		return "", ErrMalformedText
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}

	text = CleanWhitespace(text)
	text = RemoveSpecialCharacters(text, n.KeepPunctuation)
	if n.PreserveStructure {
		text = TagStructure(text)
	}
	return text, nil
}

// CleanWhitespace unifies line endings, trims every line, collapses runs of
// spaces and tabs and limits blank lines to one.
func CleanWhitespace(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = horizontalSpace.ReplaceAllString(text, " ")
	return blankLines.ReplaceAllString(text, "\n\n")
}

// RemoveSpecialCharacters applies NFKC, maps typographic quotes, dashes and
// ellipses to ASCII and drops control, format, surrogate, private-use and
// unassigned runes. Newlines and tabs survive.
func RemoveSpecialCharacters(text string, keepPunctuation bool) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = typographic.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if keepRune(r, keepPunctuation) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepRune(r rune, keepPunctuation bool) bool {
	if r < utf8.RuneSelf {
		switch {
		case r == '\n', r == '\t', r == ' ':
			return true
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return keepPunctuation
		default:
			return false
		}
	}
	// Non-ASCII: anything assigned outside the C categories.
	return unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z)
}

// TagStructure prefixes headers, table rows, bullets and numbered items so
// the structure survives into chunk text.
func TagStructure(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = tagLine(line)
	}
	return strings.Join(lines, "\n")
}

func tagLine(line string) string {
	stripped := strings.TrimSpace(line)
	switch {
	case stripped == "":
		return ""
	case strings.HasPrefix(stripped, "#"):
		return TagHeader + " " + stripped
	case isUpper(stripped) && len(strings.Fields(stripped)) >= 3:
		return TagHeader + " " + stripped
	case strings.Contains(stripped, "|") || strings.Contains(line, "\t"):
		if strings.Count(stripped, "|") >= 2 || strings.Count(line, "\t") >= 2 {
			return TagTable + " " + stripped
		}
		return stripped
	case bulletLine.MatchString(stripped):
		return TagBullet + " " + stripped
	case numberedLine.MatchString(stripped):
		return TagNumbered + " " + stripped
	default:
		return stripped
	}
}

// isUpper reports whether s has at least one cased rune and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// ExtractStats computes word, character and sentence counts of normalized text.
// Characters exclude spaces, newlines and tabs. Non-empty text has at least one sentence.
func ExtractStats(text string) schema.TextStats {
	if text == "" {
		return schema.TextStats{}
	}
	chars := 0
	for _, r := range text {
		if r != ' ' && r != '\n' && r != '\t' {
			chars++
		}
	}
	sentences := len(sentenceEnd.FindAllStringIndex(text, -1))
	if sentences == 0 {
		sentences = 1
	}
	return schema.TextStats{
		WordCount:     len(strings.Fields(text)),
		CharCount:     chars,
		SentenceCount: sentences,
	}
}
