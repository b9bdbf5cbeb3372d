// Package trash removes near-duplicate entries from archive containers and
// loose files, backing each removal up to a sibling trash folder before any
// destructive step runs.
package trash
