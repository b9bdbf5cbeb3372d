// Command dupecull finds near-duplicate images in folders and zip archives,
// fingerprints them into a durable store, and removes the redundant copies
// with a backup-first trash workflow.
package main
