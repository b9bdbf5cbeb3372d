package similarity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// numericDistance treats ids as integers and measures absolute difference.
func numericDistance(_ context.Context, a, b string) (float64, error) {
	left, err := strconv.Atoi(a)
	if err != nil {
		return 0, err
	}
	right, err := strconv.Atoi(b)
	if err != nil {
		return 0, err
	}
	return math.Abs(float64(left - right)), nil
}

func TestGroupConnectedComponents(t *testing.T) {
	grouper := NewGrouper(4, 2, quietLogger())

	// 1-2-3 chain via threshold 1; 10 and 20 are isolated.
	ids := []string{"1", "2", "3", "10", "20"}
	groups, err := grouper.Group(context.Background(), ids, numericDistance, 1)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %v", groups)
	}
	want := []string{"1", "2", "3"}
	if len(groups[0]) != len(want) {
		t.Fatalf("unexpected group: %v", groups[0])
	}
	for i, id := range want {
		if groups[0][i] != id {
			t.Fatalf("group order should follow input order: %v", groups[0])
		}
	}
}

func TestGroupThresholdInclusive(t *testing.T) {
	grouper := NewGrouper(2, 0, quietLogger())

	groups, err := grouper.Group(context.Background(), []string{"0", "5"}, numericDistance, 5)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("distance equal to threshold must join, got %v", groups)
	}

	groups, err = grouper.Group(context.Background(), []string{"0", "6"}, numericDistance, 5)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("distance above threshold must not join, got %v", groups)
	}
}

func TestGroupDropsSingletons(t *testing.T) {
	grouper := NewGrouper(2, 0, quietLogger())
	groups, err := grouper.Group(context.Background(), []string{"0", "100", "200"}, numericDistance, 1)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %v", groups)
	}
}

func TestGroupRetriesFailedPairsThenRecovers(t *testing.T) {
	grouper := NewGrouper(4, 3, quietLogger())

	var mu sync.Mutex
	failures := map[[2]string]int{}
	flaky := func(ctx context.Context, a, b string) (float64, error) {
		mu.Lock()
		key := [2]string{a, b}
		failures[key]++
		attempt := failures[key]
		mu.Unlock()
		if attempt == 1 {
			return 0, errors.New("transient evaluation failure")
		}
		return numericDistance(ctx, a, b)
	}

	groups, err := grouper.Group(context.Background(), []string{"1", "2"}, flaky, 1)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("retried pair should join, got %v", groups)
	}
}

func TestGroupExhaustedRetriesMeansNoEdge(t *testing.T) {
	grouper := NewGrouper(4, 1, quietLogger())

	var calls atomic.Int64
	alwaysFails := func(context.Context, string, string) (float64, error) {
		calls.Add(1)
		return 0, errors.New("evaluation broken")
	}

	groups, err := grouper.Group(context.Background(), []string{"1", "2"}, alwaysFails, 10)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("abandoned pair must stay apart, got %v", groups)
	}
	// One initial round plus one retry.
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 evaluation attempts, got %d", got)
	}
}

func TestGroupHonorsCancellation(t *testing.T) {
	grouper := NewGrouper(1, 0, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int64
	cancelling := func(innerCtx context.Context, a, b string) (float64, error) {
		if calls.Add(1) == 1 {
			cancel()
		}
		if err := innerCtx.Err(); err != nil {
			return 0, err
		}
		return numericDistance(innerCtx, a, b)
	}

	_, err := grouper.Group(ctx, []string{"1", "2", "3", "4"}, cancelling, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGroupFewerThanTwoItems(t *testing.T) {
	grouper := NewGrouper(2, 0, quietLogger())
	if groups, err := grouper.Group(context.Background(), []string{"1"}, numericDistance, 1); err != nil || groups != nil {
		t.Fatalf("single item: groups=%v err=%v", groups, err)
	}
	if groups, err := grouper.Group(context.Background(), nil, numericDistance, 1); err != nil || groups != nil {
		t.Fatalf("empty input: groups=%v err=%v", groups, err)
	}
}
