package codegen

import (
	"crypto/sha1" //nolint:gosec // content-addressed dedup hash, not a security boundary
	"encoding/hex"
)

// shortHash returns a content hash of submitted code for the Run.ArtifactHash
// column (spec.md §4.9: "never the code itself").
func shortHash(code string) string {
	sum := sha1.Sum([]byte(code)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
