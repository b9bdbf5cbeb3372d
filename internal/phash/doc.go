// Package phash computes perceptual image hashes and Hamming distances. The
// rest of the system treats its hash strings as opaque values.
package phash
