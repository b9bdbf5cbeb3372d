package dedup

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"dupecull/internal/fingerprint"
	"dupecull/internal/identity"
	"dupecull/internal/prune"
	"dupecull/internal/trash"
)

// hashDuplicateRule removes byte-for-byte hash twins inside a group, keeping
// the larger file and breaking ties on identifier order.
type hashDuplicateRule struct {
	hashes map[string]string // uri -> hash
}

func (hashDuplicateRule) Name() string { return "hash-duplicate" }

func (r hashDuplicateRule) Evaluate(group []prune.Candidate) []prune.Removal {
	buckets := make(map[string][]prune.Candidate)
	var order []string
	for _, candidate := range group {
		hash, ok := r.hashes[candidate.URI]
		if !ok || hash == "" {
			continue
		}
		if _, seen := buckets[hash]; !seen {
			order = append(order, hash)
		}
		buckets[hash] = append(buckets[hash], candidate)
	}

	var removals []prune.Removal
	for _, hash := range order {
		bucket := buckets[hash]
		if len(bucket) < 2 {
			continue
		}
		winner := bucket[0]
		for _, candidate := range bucket[1:] {
			if candidate.Size > winner.Size ||
				(candidate.Size == winner.Size && candidate.URI < winner.URI) {
				winner = candidate
			}
		}
		for _, candidate := range bucket {
			if candidate.URI == winner.URI {
				continue
			}
			removals = append(removals, prune.Removal{
				Candidate: candidate,
				Reason:    prune.ReasonHashDuplicate,
				Detail:    fmt.Sprintf("identical hash as %s", winner.Name),
			})
		}
	}
	return removals
}

// displayName returns the file name a prune rule should reason about: the
// internal entry name for archive members, the base name otherwise.
func displayName(id identity.Identifier) string {
	container, internal, err := identity.Resolve(id)
	if err != nil {
		return string(id)
	}
	if internal != "" {
		return filepath.Base(internal)
	}
	return filepath.Base(container)
}

// candidatesFor converts group members into prune candidates using their
// cached records for size and dimensions.
func candidatesFor(ctx context.Context, cache *fingerprint.Cache, members []string) []prune.Candidate {
	candidates := make([]prune.Candidate, 0, len(members))
	for _, member := range members {
		id := identity.Identifier(member)
		candidate := prune.Candidate{URI: member, Name: displayName(id)}
		if rec, ok := cache.Get(ctx, id); ok {
			candidate.Size = rec.FileSize
			candidate.Width = rec.Width
			candidate.Height = rec.Height
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// executeRemovals trashes the decided removals, one container at a time, and
// returns completion messages, the number of entries actually removed, and
// failures. Container work is serialized in path order so repeated runs touch
// archives deterministically.
func (p *Pipeline) executeRemovals(ctx context.Context, removals []prune.Removal) (messages []string, removed int, errs []error) {
	type containerWork struct {
		entries []trash.Entry
	}
	work := make(map[string]*containerWork)
	var containerOrder []string
	type looseWork struct {
		path   string
		reason string
	}
	var loose []looseWork

	for _, removal := range removals {
		id := identity.Identifier(removal.Candidate.URI)
		container, internal, err := identity.Resolve(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", removal.Candidate.URI, err))
			continue
		}
		if internal == "" {
			loose = append(loose, looseWork{path: container, reason: string(removal.Reason)})
			continue
		}
		if _, seen := work[container]; !seen {
			containerOrder = append(containerOrder, container)
			work[container] = &containerWork{}
		}
		work[container].entries = append(work[container].entries, trash.Entry{
			InternalPath: internal,
			Reason:       string(removal.Reason),
		})
	}
	sort.Strings(containerOrder)

	for _, container := range containerOrder {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return messages, removed, errs
		}
		msg, err := p.tx.Remove(ctx, container, work[container].entries)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove from %s: %w", container, err))
			continue
		}
		removed += len(work[container].entries)
		messages = append(messages, msg)
	}
	for _, item := range loose {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return messages, removed, errs
		}
		msg, err := p.tx.RemoveFile(ctx, item.path, item.reason)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", item.path, err))
			continue
		}
		removed++
		messages = append(messages, msg)
	}
	return messages, removed, errs
}
