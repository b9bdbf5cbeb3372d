// Package prune decides which members of a near-duplicate group to keep and
// which to remove, applying an ordered list of rules under a minimum-keep
// floor.
package prune
