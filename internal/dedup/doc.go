// Package dedup runs the end-to-end near-duplicate pipeline: discover images,
// fingerprint them, group by similarity, decide removals, and trash the
// losers.
package dedup
