package identity

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	fileScheme    = "file:///"
	archiveScheme = "archive:///"

	// mergedPrefix marks synthetic containers produced by an upstream merge
	// step. The first internal segment names the real container.
	mergedPrefix = "merged_"
)

// Identifier is a canonical string key for a file location. The zero value is
// not valid; obtain identifiers through Canonicalize.
type Identifier string

// ErrMalformed reports an identifier that could not be canonicalized. Callers
// receive the raw input unchanged alongside this error and must not treat it
// as canonical.
var ErrMalformed = errors.New("malformed identifier")

// archiveExtensions are container suffixes recognized inside raw paths.
var archiveExtensions = []string{".zip", ".cbz", ".cbr", ".rar", ".7z", ".tar"}

// Canonicalize turns a raw path into a canonical identifier.
//
// Plain paths become file:///abs/path with forward slashes. Paths containing
// an archive extension followed by "!" split into container and internal
// parts and become archive:///abs/container.ext!internal/path. Raw strings
// already carrying a file:// or archive:// scheme are re-parsed and
// re-emitted in canonical form.
func Canonicalize(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier(raw), fmt.Errorf("%w: empty path", ErrMalformed)
	}
	normalized := norm.NFC.String(trimmed)

	switch {
	case strings.HasPrefix(normalized, "file://"):
		return canonicalPlain("/" + trimSchemePrefix(normalized, "file://"))
	case strings.HasPrefix(normalized, "archive://"):
		container, internal, err := splitArchiveBody("/" + trimSchemePrefix(normalized, "archive://"))
		if err != nil {
			return Identifier(raw), err
		}
		return canonicalArchive(container, internal)
	case strings.Contains(normalized, "://"):
		return Identifier(raw), fmt.Errorf("%w: unknown protocol in %q", ErrMalformed, raw)
	}

	if container, internal, ok := splitRawArchivePath(normalized); ok {
		return canonicalArchive(container, internal)
	}
	return canonicalPlain(normalized)
}

// StripFormat derives the format-insensitive key by removing the trailing
// extension from the identifier's final path segment. It is idempotent: keys
// without an extension pass through unchanged.
func StripFormat(id Identifier) string {
	s := string(id)
	base := finalSegment(s)
	ext := path.Ext(base)
	if ext == "" || ext == base {
		return s
	}
	return s[:len(s)-len(ext)]
}

// finalSegment returns the text after the last path or archive separator.
func finalSegment(s string) string {
	cut := strings.LastIndex(s, "/")
	if bang := strings.LastIndex(s, "!"); bang > cut {
		cut = bang
	}
	return s[cut+1:]
}

// Format returns the identifier's lowercase extension without the dot, or ""
// when the final segment carries none.
func Format(id Identifier) string {
	ext := path.Ext(finalSegment(string(id)))
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsArchive reports whether the identifier addresses a container-embedded file.
func IsArchive(id Identifier) bool {
	return strings.HasPrefix(string(id), archiveScheme)
}

// Resolve maps an identifier back to filesystem paths. Plain identifiers
// return the file path with an empty internal part; archived identifiers
// return the container path and the slash-separated internal path.
func Resolve(id Identifier) (container string, internal string, err error) {
	s := string(id)
	switch {
	case strings.HasPrefix(s, fileScheme):
		return filepath.FromSlash(s[len(fileScheme)-1:]), "", nil
	case strings.HasPrefix(s, archiveScheme):
		body := s[len(archiveScheme)-1:]
		container, internal, err := splitArchiveBody(body)
		if err != nil {
			return string(id), "", err
		}
		return filepath.FromSlash(container), internal, nil
	default:
		return string(id), "", fmt.Errorf("%w: unknown protocol in %q", ErrMalformed, s)
	}
}

func canonicalPlain(p string) (Identifier, error) {
	abs, err := filepath.Abs(filepath.FromSlash(p))
	if err != nil {
		return Identifier(p), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Identifier(fileScheme + strings.TrimPrefix(filepath.ToSlash(abs), "/")), nil
}

func canonicalArchive(container, internal string) (Identifier, error) {
	if strings.TrimSpace(internal) == "" {
		return Identifier(container), fmt.Errorf("%w: empty internal path after separator", ErrMalformed)
	}
	container, internal = rewriteMerged(container, internal)
	abs, err := filepath.Abs(filepath.FromSlash(container))
	if err != nil {
		return Identifier(container), fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	containerPart := strings.TrimPrefix(filepath.ToSlash(abs), "/")
	internalPart := strings.Trim(strings.ReplaceAll(internal, "\\", "/"), "/")
	return Identifier(archiveScheme + containerPart + "!" + internalPart), nil
}

// rewriteMerged re-roots entries of a synthetic merged container at the real
// container named by the first internal segment. The rewrite happens before
// canonicalization completes because the merged file is not the entry's
// logical home.
func rewriteMerged(container, internal string) (string, string) {
	base := path.Base(filepath.ToSlash(container))
	if !strings.HasPrefix(base, mergedPrefix) || !strings.EqualFold(path.Ext(base), ".zip") {
		return container, internal
	}
	segments := strings.SplitN(strings.Trim(strings.ReplaceAll(internal, "\\", "/"), "/"), "/", 2)
	if len(segments) == 0 || segments[0] == "" {
		return container, internal
	}
	dir := path.Dir(filepath.ToSlash(container))
	newContainer := path.Join(dir, segments[0]+".zip")
	remainder := ""
	if len(segments) == 2 {
		remainder = segments[1]
	}
	return newContainer, remainder
}

func trimSchemePrefix(s, scheme string) string {
	s = strings.TrimPrefix(s, scheme)
	return strings.TrimPrefix(s, "/")
}

// splitArchiveBody separates container and internal parts of an archive
// identifier body. Both "!" and "!/" separators are accepted on read; only
// "!" is ever produced on write.
func splitArchiveBody(body string) (string, string, error) {
	idx := strings.Index(body, "!")
	if idx < 0 {
		return body, "", fmt.Errorf("%w: missing archive separator in %q", ErrMalformed, body)
	}
	container := body[:idx]
	internal := strings.TrimPrefix(body[idx+1:], "/")
	if strings.TrimSpace(internal) == "" {
		return body, "", fmt.Errorf("%w: empty internal path after separator", ErrMalformed)
	}
	return container, internal, nil
}

// splitRawArchivePath detects the container/internal boundary in a raw path
// such as /data/book.zip!p01.jpg. The last archive extension wins so that one
// level of container nesting resolves to the innermost container.
func splitRawArchivePath(raw string) (string, string, bool) {
	normalized := strings.ReplaceAll(raw, "\\", "/")
	lower := strings.ToLower(normalized)
	split := -1
	for _, ext := range archiveExtensions {
		marker := ext + "!"
		if idx := strings.LastIndex(lower, marker); idx >= 0 {
			end := idx + len(ext)
			if end > split {
				split = end
			}
		}
	}
	if split < 0 {
		return "", "", false
	}
	return normalized[:split], normalized[split+1:], true
}
