// Package identity canonicalizes file locations into stable identifiers.
//
// An identifier is either a plain filesystem file (file:///abs/path) or a file
// embedded in an archive container (archive:///abs/container.zip!internal/path).
// Canonicalization absorbs slash-style and Unicode-normalization differences so
// two spellings of the same on-disk entity compare equal. Format-insensitive
// keys strip the trailing extension, letting re-encoded copies of one logical
// image share a lookup key in the fingerprint store.
package identity
