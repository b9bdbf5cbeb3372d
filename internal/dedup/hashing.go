package dedup

import (
	"archive/zip"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"dupecull/internal/fingerprint"
	"dupecull/internal/identity"
	"dupecull/internal/services"
)

// hashOutcome accumulates fingerprinting counters and per-target failures.
type hashOutcome struct {
	mu        sync.Mutex
	hashed    int
	cacheHits int
	failures  []error
}

func (o *hashOutcome) recordHit() {
	o.mu.Lock()
	o.cacheHits++
	o.mu.Unlock()
}

func (o *hashOutcome) recordHash() {
	o.mu.Lock()
	o.hashed++
	o.mu.Unlock()
}

func (o *hashOutcome) recordFailure(err error) {
	o.mu.Lock()
	o.failures = append(o.failures, err)
	o.mu.Unlock()
}

// fingerprintTargets computes or reuses fingerprints for every target,
// writing results into the worker cache. Targets are batched per container so
// each archive opens once. Unreadable images are collected as failures, not
// fatal errors.
func (p *Pipeline) fingerprintTargets(ctx context.Context, cache *fingerprint.Cache, targets []Target) (*hashOutcome, error) {
	outcome := &hashOutcome{}

	var loose []Target
	byContainer := make(map[string][]Target)
	var containerOrder []string
	for _, target := range targets {
		if !identity.IsArchive(target.ID) {
			loose = append(loose, target)
			continue
		}
		container, _, err := identity.Resolve(target.ID)
		if err != nil {
			outcome.recordFailure(err)
			continue
		}
		if _, seen := byContainer[container]; !seen {
			containerOrder = append(containerOrder, container)
		}
		byContainer[container] = append(byContainer[container], target)
	}

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers())

	for _, target := range loose {
		eg.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			p.hashLooseTarget(groupCtx, cache, target, outcome)
			return nil
		})
	}
	for _, container := range containerOrder {
		batch := byContainer[container]
		eg.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			p.hashContainerBatch(groupCtx, cache, container, batch, outcome)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return outcome, err
	}
	return outcome, ctx.Err()
}

func (p *Pipeline) hashLooseTarget(ctx context.Context, cache *fingerprint.Cache, target Target, outcome *hashOutcome) {
	if p.reuseCached(ctx, cache, target, outcome) {
		return
	}
	path, _, err := identity.Resolve(target.ID)
	if err != nil {
		outcome.recordFailure(err)
		return
	}
	res, err := p.gen.HashFile(path)
	if err != nil {
		outcome.recordFailure(fmt.Errorf("hash %s: %w", path, err))
		return
	}
	rec := fingerprint.NewRecord(target.ID, res.Hash, p.gen.Algorithm(), p.gen.HashSize()).
		WithMetadata(target.Size, res.Width, res.Height)
	cache.Put(ctx, rec)
	outcome.recordHash()
}

func (p *Pipeline) hashContainerBatch(ctx context.Context, cache *fingerprint.Cache, container string, batch []Target, outcome *hashOutcome) {
	var pending []Target
	for _, target := range batch {
		if !p.reuseCached(ctx, cache, target, outcome) {
			pending = append(pending, target)
		}
	}
	if len(pending) == 0 {
		return
	}

	reader, err := zip.OpenReader(container)
	if err != nil {
		outcome.recordFailure(fmt.Errorf("open container %s: %w", container, err))
		return
	}
	defer reader.Close()

	entries := make(map[string]*zip.File, len(reader.File))
	for _, entry := range reader.File {
		entries[filepath.ToSlash(entry.Name)] = entry
	}

	for _, target := range pending {
		if ctx.Err() != nil {
			return
		}
		_, internal, err := identity.Resolve(target.ID)
		if err != nil {
			outcome.recordFailure(err)
			continue
		}
		entry, ok := entries[filepath.ToSlash(internal)]
		if !ok {
			outcome.recordFailure(services.Wrap(services.ErrNotFound, "dedup", "hash entry",
				fmt.Sprintf("%s missing from %s", internal, container), nil))
			continue
		}
		src, err := entry.Open()
		if err != nil {
			outcome.recordFailure(fmt.Errorf("open entry %s: %w", internal, err))
			continue
		}
		res, err := p.gen.HashReader(src)
		_ = src.Close()
		if err != nil {
			outcome.recordFailure(fmt.Errorf("hash %s!%s: %w", container, internal, err))
			continue
		}
		rec := fingerprint.NewRecord(target.ID, res.Hash, p.gen.Algorithm(), p.gen.HashSize()).
			WithMetadata(target.Size, res.Width, res.Height)
		cache.Put(ctx, rec)
		outcome.recordHash()
	}
}

// reuseCached resolves the target through the cache's format-tolerant lookup.
// A hit recorded under a different identifier is re-recorded under this one so
// renames and format conversions converge.
func (p *Pipeline) reuseCached(ctx context.Context, cache *fingerprint.Cache, target Target, outcome *hashOutcome) bool {
	rec, ok := cache.SmartQuery(ctx, target.ID, nil)
	if !ok || rec.Hash == "" {
		return false
	}
	if rec.Algorithm != p.gen.Algorithm() || rec.HashSize != p.gen.HashSize() {
		return false
	}
	if rec.URI != string(target.ID) {
		fresh := fingerprint.NewRecord(target.ID, rec.Hash, rec.Algorithm, rec.HashSize).
			WithMetadata(target.Size, rec.Width, rec.Height)
		cache.Put(ctx, fresh)
	}
	outcome.recordHit()
	return true
}

// reuseContainerHashes records container-level fingerprints for containers
// whose base name already carries a hash under another path. The entries
// inside still hash normally; this only spares rehashing the container file
// itself.
func (p *Pipeline) reuseContainerHashes(ctx context.Context, cache *fingerprint.Cache, containers []string) int {
	if p.store == nil {
		return 0
	}
	reused := 0
	for _, container := range containers {
		id, err := identity.Canonicalize(container)
		if err != nil {
			continue
		}
		if _, ok := cache.Get(ctx, id); ok {
			continue
		}
		hash, ok, err := p.store.LookupContainerHash(ctx, filepath.Base(container))
		if err != nil || !ok {
			continue
		}
		cache.Put(ctx, fingerprint.NewRecord(id, hash, p.gen.Algorithm(), p.gen.HashSize()))
		reused++
	}
	return reused
}
