package loaders

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/raghavkhare98/documind/backend/go/internal/rag_service/rag/schema"
)

// folderDocTypes maps well-known folder names to the document type of the files below them.
var folderDocTypes = map[string]schema.DocType{
	"documentations":   schema.DocTypeDocumentation,
	"documentation":    schema.DocTypeDocumentation,
	"rfc":              schema.DocTypeRFC,
	"rfcs":             schema.DocTypeRFC,
	"research_papers":  schema.DocTypeResearch,
	"research":         schema.DocTypeResearch,
	"papers":           schema.DocTypeResearch,
	"software_manuals": schema.DocTypeManual,
	"manuals":          schema.DocTypeManual,
	"manual":           schema.DocTypeManual,
}

var rfcNumber = regexp.MustCompile(`rfc\s*(\d+)`)

func pathParts(path string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return parts
}

// typeFolder returns the index of the first path element naming a document
// type folder, or -1.
func typeFolder(parts []string) int {
	for i, p := range parts {
		if _, ok := folderDocTypes[strings.ToLower(p)]; ok {
			return i
		}
	}
	return -1
}

// ResolveDocType derives the document type from the first type folder on
// path. Files outside any type folder are documentation.
func ResolveDocType(path string) schema.DocType {
	parts := pathParts(path)
	if i := typeFolder(parts); i >= 0 {
		return folderDocTypes[strings.ToLower(parts[i])]
	}
	return schema.DocTypeDocumentation
}

// ResolveSource derives the source label of a file:
//   - an RFC file named like "rfc7540" yields "rfc7540";
//   - a sub-folder between the type folder and the file yields that folder's name;
//   - otherwise the file stem.
//
// The result is lower-cased.
func ResolveSource(path string, docType schema.DocType) string {
	name := strings.ToLower(filepath.Base(path))
	if docType == schema.DocTypeRFC {
		if m := rfcNumber.FindStringSubmatch(name); m != nil {
			return "rfc" + m[1]
		}
	}

	parts := pathParts(path)
	if i := typeFolder(parts); i >= 0 && i+1 < len(parts)-1 {
		return strings.ToLower(parts[i+1])
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
