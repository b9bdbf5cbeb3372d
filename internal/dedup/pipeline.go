package dedup

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"dupecull/internal/config"
	"dupecull/internal/fingerprint"
	"dupecull/internal/identity"
	"dupecull/internal/phash"
	"dupecull/internal/prune"
	"dupecull/internal/similarity"
	"dupecull/internal/trash"
)

// Pipeline chains identification, fingerprinting, grouping, pruning and
// removal over a library of images and archives.
type Pipeline struct {
	cfg    *config.Config
	store  *fingerprint.Store
	gen    *phash.Generator
	tx     *trash.Transaction
	logger *slog.Logger
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithTransaction substitutes the removal transaction, primarily for tests.
func WithTransaction(tx *trash.Transaction) Option {
	return func(p *Pipeline) {
		if tx != nil {
			p.tx = tx
		}
	}
}

// New builds a pipeline from configuration. The store may be nil for
// memory-only runs.
func New(cfg *config.Config, store *fingerprint.Store, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gen, err := phash.NewGenerator(cfg.Hashing.Algorithm, cfg.Hashing.HashSize)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		gen:    gen,
		tx:     trash.FromConfig(cfg, logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Hashing.Workers > 0 {
		return p.cfg.Hashing.Workers
	}
	return 1
}

// GroupReport describes one near-duplicate group and the decisions made for
// it.
type GroupReport struct {
	Members  []string
	Kept     []string
	Removals []prune.Removal
}

// Report summarizes a pipeline run.
type Report struct {
	RunID          string
	DryRun         bool
	Scanned        int
	Hashed         int
	CacheHits      int
	ReusedArchives int
	Groups         []GroupReport
	Removed        int
	Messages       []string
	Errors         []string
}

// Scan fingerprints everything under roots and merges the results into the
// durable store without making any removal decisions.
func (p *Pipeline) Scan(ctx context.Context, roots []string) (*Report, error) {
	report := p.newReport(false)
	cache, err := p.prepareCache(ctx, report)
	if err != nil {
		return report, err
	}

	targets, containers, discoverErrs := Discover(roots)
	report.Scanned = len(targets)
	appendErrors(report, discoverErrs)

	outcome, err := p.fingerprintTargets(ctx, cache, targets)
	p.fold(report, outcome)
	if err != nil {
		return report, err
	}
	report.ReusedArchives = p.reuseContainerHashes(ctx, cache, containers)

	if err := p.merge(ctx, cache, report); err != nil {
		return report, err
	}
	return report, nil
}

// Cull runs the whole pipeline: scan, group, prune, and remove. With dryRun
// set the decisions are reported but nothing is trashed.
func (p *Pipeline) Cull(ctx context.Context, roots []string, dryRun bool) (*Report, error) {
	report := p.newReport(dryRun)
	cache, err := p.prepareCache(ctx, report)
	if err != nil {
		return report, err
	}

	targets, containers, discoverErrs := Discover(roots)
	report.Scanned = len(targets)
	appendErrors(report, discoverErrs)

	outcome, err := p.fingerprintTargets(ctx, cache, targets)
	p.fold(report, outcome)
	if err != nil {
		return report, err
	}
	report.ReusedArchives = p.reuseContainerHashes(ctx, cache, containers)

	if err := p.merge(ctx, cache, report); err != nil {
		return report, err
	}

	hashes := make(map[string]string, len(targets))
	var ids []string
	for _, target := range targets {
		rec, ok := cache.Get(ctx, target.ID)
		if !ok || rec.Hash == "" {
			continue
		}
		ids = append(ids, string(target.ID))
		hashes[string(target.ID)] = rec.Hash
	}

	grouper := similarity.NewGrouper(p.cfg.Similarity.Workers, p.cfg.Similarity.RetryBudget, p.logger)
	distance := func(_ context.Context, a, b string) (float64, error) {
		dist, err := phash.Distance(hashes[a], hashes[b])
		return float64(dist), err
	}
	groups, err := grouper.Group(ctx, ids, distance, p.cfg.Similarity.Threshold)
	if err != nil {
		return report, err
	}

	rules := append([]prune.Rule{hashDuplicateRule{hashes: hashes}}, prune.FromConfig(p.cfg.Pruning)...)
	var allRemovals []prune.Removal
	for _, members := range groups {
		candidates := candidatesFor(ctx, cache, members)
		kept, removals := prune.Prune(candidates, rules, p.cfg.Pruning.MinKeep)

		groupReport := GroupReport{Members: members, Removals: removals}
		for _, candidate := range kept {
			groupReport.Kept = append(groupReport.Kept, candidate.URI)
		}
		report.Groups = append(report.Groups, groupReport)
		allRemovals = append(allRemovals, removals...)
	}

	if dryRun || len(allRemovals) == 0 {
		return report, nil
	}

	messages, removed, removalErrs := p.executeRemovals(ctx, allRemovals)
	report.Messages = append(report.Messages, messages...)
	appendErrors(report, removalErrs)
	report.Removed = removed
	return report, nil
}

func (p *Pipeline) newReport(dryRun bool) *Report {
	return &Report{RunID: uuid.NewString(), DryRun: dryRun}
}

// prepareCache builds a preloaded worker cache. Durable writes are disabled;
// the coordinator merges pending records after the workers finish.
func (p *Pipeline) prepareCache(ctx context.Context, report *Report) (*fingerprint.Cache, error) {
	cache := fingerprint.NewCache(p.store, p.logger, fingerprint.WithoutPersistence())
	if p.store != nil {
		if _, err := cache.Preload(ctx); err != nil {
			p.logger.Warn("preload failed, continuing memory-only",
				"run_id", report.RunID, "error", err)
		}
	}
	return cache, nil
}

func (p *Pipeline) merge(ctx context.Context, cache *fingerprint.Cache, report *Report) error {
	if p.store == nil {
		return nil
	}
	coordinator := fingerprint.NewCoordinator(p.store, p.logger)
	written, err := coordinator.Merge(ctx, cache)
	if err != nil {
		p.logger.Warn("fingerprint merge failed, results stay memory-only",
			"run_id", report.RunID, "error", err)
		report.Errors = append(report.Errors, err.Error())
		return nil
	}
	if written > 0 {
		p.logger.Info("fingerprints persisted", "run_id", report.RunID, "records", written)
	}
	return nil
}

func (p *Pipeline) fold(report *Report, outcome *hashOutcome) {
	if outcome == nil {
		return
	}
	report.Hashed = outcome.hashed
	report.CacheHits = outcome.cacheHits
	for _, err := range outcome.failures {
		report.Errors = append(report.Errors, err.Error())
	}
}

func appendErrors(report *Report, errs []error) {
	for _, err := range errs {
		report.Errors = append(report.Errors, err.Error())
	}
}

// Identify canonicalizes raw paths without touching the filesystem contents.
// Used by the CLI to preview identifier handling.
func Identify(raws []string) ([]identity.Identifier, []error) {
	ids := make([]identity.Identifier, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		id, err := identity.Canonicalize(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}
