package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// fingerprintLen is the number of hex characters of the content hash kept in a chunk id.
const fingerprintLen = 8

// ChunkID derives the content-addressed identifier of a chunk:
// "{docID}_chunk_{index}_{first 8 hex chars of sha256(content)}".
func ChunkID(docID string, index int, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s_chunk_%d_%s", docID, index, hex.EncodeToString(sum[:])[:fingerprintLen])
}
