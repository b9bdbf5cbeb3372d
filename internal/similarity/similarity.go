package similarity

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DistanceFunc reports how far apart two items are. It must be symmetric;
// each unordered pair is evaluated once.
type DistanceFunc func(ctx context.Context, a, b string) (float64, error)

// Grouper builds near-duplicate groups from pairwise distances.
type Grouper struct {
	workers     int
	retryBudget int
	logger      *slog.Logger
}

// NewGrouper builds a grouper running distance evaluations across the given
// number of workers. Failed pairs are retried with halved parallelism up to
// retryBudget additional rounds.
func NewGrouper(workers, retryBudget int, logger *slog.Logger) *Grouper {
	if workers < 1 {
		workers = 1
	}
	if retryBudget < 0 {
		retryBudget = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Grouper{workers: workers, retryBudget: retryBudget, logger: logger}
}

type pair struct {
	a, b int
}

// Group evaluates the full pairwise matrix over ids and returns the connected
// components of the graph whose edges join pairs at distance less than or
// equal to threshold. Singleton components are dropped. Group membership is
// deterministic: groups and their members follow the input order.
func (g *Grouper) Group(ctx context.Context, ids []string, distance DistanceFunc, threshold float64) ([][]string, error) {
	if len(ids) < 2 {
		return nil, nil
	}

	pairs := make([]pair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, pair{a: i, b: j})
		}
	}

	adjacency := make([][]int, len(ids))
	var mu sync.Mutex

	workers := g.workers
	remaining := pairs
	for round := 0; len(remaining) > 0; round++ {
		failed, err := g.runRound(ctx, ids, remaining, distance, threshold, workers, &mu, adjacency)
		if err != nil {
			return nil, err
		}
		if len(failed) == 0 {
			break
		}
		if round >= g.retryBudget {
			for _, p := range failed {
				g.logger.Warn("distance evaluation abandoned, treating pair as dissimilar",
					"left", ids[p.a], "right", ids[p.b], "rounds", round+1)
			}
			break
		}
		if workers > 1 {
			workers /= 2
		}
		g.logger.Info("retrying failed distance evaluations",
			"pairs", len(failed), "workers", workers)
		remaining = failed
	}

	return components(ids, adjacency), nil
}

// runRound evaluates one batch of pairs and returns the pairs whose distance
// function failed.
func (g *Grouper) runRound(ctx context.Context, ids []string, batch []pair, distance DistanceFunc,
	threshold float64, workers int, mu *sync.Mutex, adjacency [][]int) ([]pair, error) {

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	var failed []pair
	for _, p := range batch {
		if err := groupCtx.Err(); err != nil {
			break
		}
		eg.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			dist, err := distance(groupCtx, ids[p.a], ids[p.b])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, p)
				return nil
			}
			if dist <= threshold {
				adjacency[p.a] = append(adjacency[p.a], p.b)
				adjacency[p.b] = append(adjacency[p.b], p.a)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return failed, nil
}

// components walks the adjacency list breadth-first in input order and keeps
// components with at least two members.
func components(ids []string, adjacency [][]int) [][]string {
	visited := make([]bool, len(ids))
	var groups [][]string
	for start := range ids {
		if visited[start] || len(adjacency[start]) == 0 {
			continue
		}
		var member []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			member = append(member, node)
			for _, next := range adjacency[node] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		if len(member) < 2 {
			continue
		}
		// Input order, not discovery order, fixes the membership listing.
		group := make([]string, 0, len(member))
		indexSet := make(map[int]struct{}, len(member))
		for _, idx := range member {
			indexSet[idx] = struct{}{}
		}
		for idx := range ids {
			if _, ok := indexSet[idx]; ok {
				group = append(group, ids[idx])
			}
		}
		groups = append(groups, group)
	}
	return groups
}
