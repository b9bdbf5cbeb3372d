package fingerprint

import (
	"path"
	"strings"
	"time"

	"dupecull/internal/identity"
)

// Record is one computed fingerprint for one identifier. Multiple identifiers
// may carry the same hash (re-encoded physical copies are tracked
// independently); one identifier carries exactly one current hash.
type Record struct {
	URI          string
	BaseURI      string
	Format       string
	Archive      string
	Hash         string
	Algorithm    string
	HashSize     int
	FileSize     int64
	Width        int
	Height       int
	CalculatedAt time.Time
}

// NewRecord builds a Record for the given identifier, deriving the
// format-insensitive key, format tag, and container name.
func NewRecord(id identity.Identifier, hash, algorithm string, hashSize int) Record {
	return Record{
		URI:          string(id),
		BaseURI:      identity.StripFormat(id),
		Format:       identity.Format(id),
		Archive:      containerName(id),
		Hash:         hash,
		Algorithm:    algorithm,
		HashSize:     hashSize,
		CalculatedAt: time.Now().UTC(),
	}
}

// WithMetadata returns a copy of the record carrying file size and pixel
// dimensions.
func (r Record) WithMetadata(fileSize int64, width, height int) Record {
	r.FileSize = fileSize
	r.Width = width
	r.Height = height
	return r
}

func containerName(id identity.Identifier) string {
	if !identity.IsArchive(id) {
		return ""
	}
	container, _, err := identity.Resolve(id)
	if err != nil {
		return ""
	}
	return path.Base(strings.ReplaceAll(container, "\\", "/"))
}
