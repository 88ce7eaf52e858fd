package download

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

const artifactExt = ".mp4"

var artifactIDPattern = regexp.MustCompile(`^[a-f0-9]{32}\.mp4$`)

// NewArtifactID generates a random artifact identifier: 16 bytes of
// crypto-random hex plus a fixed extension. The identifier space makes
// collisions negligible and carries no trace of the source URL.
func NewArtifactID() string {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(raw) + artifactExt
}

// ValidArtifactID reports whether id has the generated-identifier shape.
// Anything else is rejected before it can reach the filesystem.
func ValidArtifactID(id string) bool {
	return artifactIDPattern.MatchString(id)
}
